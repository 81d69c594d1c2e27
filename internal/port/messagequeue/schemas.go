package messagequeue

// CheckpointCreatedPayload is the schema for memory.checkpoint.created
// messages, published after a conversation or reflection is stored.
type CheckpointCreatedPayload struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Kind       string `json:"kind"` // conversation, reflection
}

// InsightStoredPayload is the schema for memory.insight.stored messages.
type InsightStoredPayload struct {
	ID              string  `json:"id"`
	Collection      string  `json:"collection"`
	InsightType     string  `json:"insight_type"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// SyncCompletedPayload is the schema for sync.completed messages.
type SyncCompletedPayload struct {
	Method           string  `json:"method"`
	Success          bool    `json:"success"`
	FilesUploaded    int     `json:"files_uploaded"`
	BytesTransferred int64   `json:"bytes_transferred"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// CategoryEvolvedPayload is the schema for evolution.category.evolved
// messages, published after a re-clustering pass changes a category's
// subcategory layout.
type CategoryEvolvedPayload struct {
	Category         string `json:"category"`
	SubcategoryCount int    `json:"subcategory_count"`
	MemoriesAffected int    `json:"memories_affected"`
}

// PoolTaskFailedPayload is the schema for pool.task.failed messages.
type PoolTaskFailedPayload struct {
	PoolID string `json:"pool_id"`
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}
