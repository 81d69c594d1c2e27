package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidCheckpointCreated(t *testing.T) {
	data := []byte(`{"id":"c1","collection":"default","kind":"conversation"}`)
	if err := Validate(SubjectCheckpointCreated, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidInsightStored(t *testing.T) {
	data := []byte(`{"id":"i1","collection":"default","insight_type":"lesson","confidence_score":0.8}`)
	if err := Validate(SubjectInsightStored, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidSyncCompleted(t *testing.T) {
	data := []byte(`{"method":"cloud","success":true,"files_uploaded":2,"bytes_transferred":1024,"duration_seconds":1.5}`)
	if err := Validate(SubjectSyncCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidCategoryEvolved(t *testing.T) {
	data := []byte(`{"category":"context","subcategory_count":4,"memories_affected":12}`)
	if err := Validate(SubjectCategoryEvolved, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidPoolTaskFailed(t *testing.T) {
	data := []byte(`{"pool_id":"p1","task_id":"t1","error":"timeout"}`)
	if err := Validate(SubjectPoolTaskFailed, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	// Unknown subjects should pass (future-proof).
	data := []byte(`{"foo":"bar"}`)
	if err := Validate("unknown.subject", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	data := []byte(`{not valid json`)
	err := Validate(SubjectCheckpointCreated, data)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected 'invalid JSON' in error, got: %v", err)
	}
}

func TestValidateInvalidSchema(t *testing.T) {
	// Valid JSON but cannot unmarshal into CheckpointCreatedPayload
	// (a bare string instead of an object).
	data := []byte(`"just a string"`)
	err := Validate(SubjectCheckpointCreated, data)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected 'schema validation failed' in error, got: %v", err)
	}
}

func TestValidateEmptyJSON(t *testing.T) {
	// Empty object is valid JSON and valid for all schemas (all fields are zero-value).
	data := []byte(`{}`)
	if err := Validate(SubjectCheckpointCreated, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
