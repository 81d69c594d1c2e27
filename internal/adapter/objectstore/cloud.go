package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/lesleslie/session-buddy/internal/domain/sync"
	"github.com/lesleslie/session-buddy/internal/resilience"
)

// Exporter produces the raw bytes of each file the cloud method may upload.
// Generating these exports from the memory store is an out-of-scope
// collaborator; CloudSyncMethod only knows how to ship bytes.
type Exporter interface {
	ExportReflections(ctx context.Context) ([]byte, error)
	ExportKnowledgeGraph(ctx context.Context) ([]byte, error)
}

const (
	reflectionFileName     = "reflection.duckdb"
	knowledgeGraphFileName = "knowledge_graph.duckdb"
	manifestFileName       = "manifest.json"
)

// manifestFile describes one uploaded file in manifest.json.
type manifestFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SizeBytes   int    `json:"size_bytes"`
	Compression string `json:"compression"`
	Checksum    string `json:"checksum"`
}

type manifest struct {
	UploadID  string                 `json:"upload_id"`
	SystemID  string                 `json:"system_id"`
	Timestamp string                 `json:"timestamp"`
	Files     []manifestFile         `json:"files"`
	Metadata  map[string]string      `json:"metadata"`
}

// CloudSyncMethod uploads reflection/knowledge-graph exports to an
// S3-compatible object store under systems/{system_id}/uploads/{upload_id}/.
type CloudSyncMethod struct {
	client   S3Client
	bucket   string
	endpoint string
	region   string
	systemID string
	cfg      sync.Config
	exporter Exporter
	breaker  *resilience.Breaker
}

// NewCloudSyncMethod validates configuration at construction time: invalid
// bucket name, non-HTTPS endpoint, or force_method=cloud with no bucket are
// all rejected immediately rather than surfacing later. breaker may be nil,
// in which case every retry attempt always reaches the object store.
func NewCloudSyncMethod(client S3Client, cfg sync.Config, exporter Exporter, breaker *resilience.Breaker) (*CloudSyncMethod, error) {
	if cfg.ForceMethod == sync.ForceCloud && cfg.CloudBucket == "" {
		return nil, fmt.Errorf("force_method=cloud requires a cloud bucket")
	}
	if cfg.CloudBucket != "" {
		if err := validateBucketName(cfg.CloudBucket); err != nil {
			return nil, err
		}
	}
	if cfg.CloudEndpoint != "" {
		u, err := url.Parse(cfg.CloudEndpoint)
		if err != nil || u.Scheme != "https" {
			return nil, fmt.Errorf("cloud endpoint must be an https URL, got %q", cfg.CloudEndpoint)
		}
	}
	return &CloudSyncMethod{
		client:   client,
		bucket:   cfg.CloudBucket,
		endpoint: cfg.CloudEndpoint,
		region:   cfg.CloudRegion,
		systemID: cfg.SystemIDOrHostname(),
		cfg:      cfg,
		exporter: exporter,
		breaker:  breaker,
	}, nil
}

func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return fmt.Errorf("invalid bucket name %q: must be 3-63 characters", name)
	}
	return nil
}

// MethodName implements sync.Method.
func (c *CloudSyncMethod) MethodName() string { return "cloud" }

// IsAvailable reports whether a bucket is configured (the object-store
// client being present is implied by successful construction).
func (c *CloudSyncMethod) IsAvailable(_ context.Context) bool {
	return c.client != nil && c.bucket != ""
}

// Sync uploads the requested exports, then the manifest, retrying each
// upload with exponential backoff.
func (c *CloudSyncMethod) Sync(ctx context.Context, uploadReflections, uploadKnowledgeGraph bool) (sync.Result, error) {
	start := time.Now()
	uploadID := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), c.systemID)
	prefix := fmt.Sprintf("systems/%s/uploads/%s/", c.systemID, uploadID)

	var files []manifestFile
	var bytesTransferred int64

	if uploadReflections {
		data, err := c.exporter.ExportReflections(ctx)
		if err != nil {
			return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
		}
		f, n, err := c.uploadFile(ctx, prefix, reflectionFileName, data)
		if err != nil {
			return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
		}
		if f != nil {
			files = append(files, *f)
			bytesTransferred += n
		}
	}

	if uploadKnowledgeGraph {
		data, err := c.exporter.ExportKnowledgeGraph(ctx)
		if err != nil {
			return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
		}
		f, n, err := c.uploadFile(ctx, prefix, knowledgeGraphFileName, data)
		if err != nil {
			return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
		}
		if f != nil {
			files = append(files, *f)
			bytesTransferred += n
		}
	}

	man := manifest{
		UploadID:  uploadID,
		SystemID:  c.systemID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Files:     files,
		Metadata:  map[string]string{"uploader": "session-buddy", "version": "1.0.0"},
	}
	manJSON, err := gojson.Marshal(man)
	if err != nil {
		return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
	}
	if err := c.putWithRetry(ctx, prefix+manifestFileName, manJSON); err != nil {
		return sync.Result{}, &sync.CloudUploadError{Method: c.MethodName(), Cause: err}
	}

	return sync.Result{
		Method:           c.MethodName(),
		Success:          true,
		FilesUploaded:    len(files),
		BytesTransferred: bytesTransferred,
		DurationSeconds:  time.Since(start).Seconds(),
		UploadID:         uploadID,
	}, nil
}

func (c *CloudSyncMethod) uploadFile(ctx context.Context, prefix, name string, data []byte) (*manifestFile, int64, error) {
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key := prefix + name
	compression := "none"

	if c.cfg.EnableDeduplication {
		if existing, ok := c.existingChecksum(ctx, key); ok && existing == checksum {
			return nil, 0, nil
		}
	}

	payload := data
	if c.cfg.EnableCompression {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, 0, fmt.Errorf("gzip %s: %w", name, err)
		}
		if err := gz.Close(); err != nil {
			return nil, 0, fmt.Errorf("close gzip %s: %w", name, err)
		}
		payload = buf.Bytes()
		key += ".gz"
		name += ".gz"
		compression = "gzip"
	}

	if err := c.putWithRetry(ctx, key, payload); err != nil {
		return nil, 0, err
	}

	return &manifestFile{
		Name:        name,
		Path:        key,
		SizeBytes:   len(payload),
		Compression: compression,
		Checksum:    checksum,
	}, int64(len(payload)), nil
}

func (c *CloudSyncMethod) existingChecksum(ctx context.Context, key string) (string, bool) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil || out == nil {
		return "", false
	}
	if v, ok := out.Metadata["checksum"]; ok {
		return v, true
	}
	return "", false
}

func (c *CloudSyncMethod) putWithRetry(ctx context.Context, key string, data []byte) error {
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	var lastErr error
	for i := 0; i < c.cfg.MaxRetries; i++ {
		putErr := func() error {
			if c.breaker == nil {
				_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
					Bucket:   aws.String(c.bucket),
					Key:      aws.String(key),
					Body:     io.NopCloser(bytes.NewReader(data)),
					Metadata: map[string]string{"checksum": checksum},
				})
				return err
			}
			return c.breaker.Execute(func() error {
				_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
					Bucket:   aws.String(c.bucket),
					Key:      aws.String(key),
					Body:     io.NopCloser(bytes.NewReader(data)),
					Metadata: map[string]string{"checksum": checksum},
				})
				return err
			})
		}()
		if putErr == nil {
			return nil
		}
		lastErr = putErr
		if errors.Is(putErr, resilience.ErrCircuitOpen) {
			return fmt.Errorf("upload %s: %w", key, putErr)
		}

		backoff := time.Duration(c.cfg.RetryBackoffSeconds*float64(time.Second)) * time.Duration(1<<i)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload %s failed after %d attempts: %w", key, c.cfg.MaxRetries, lastErr)
}
