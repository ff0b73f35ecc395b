// Package storage stores recorded video answers in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// VideoContentType is the content type of browser-recorded answers
const VideoContentType = "video/webm"

// ObjectStore accepts uploads at deterministic keys and resolves public URLs.
// Put overwrites an existing object at the same key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	PublicURL(key string) string
}

// VideoKey returns the content-addressed key of a video answer:
// {userId}/{assignmentId}/{questionId}.webm
func VideoKey(userID, assignmentID, questionID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s.webm", userID, assignmentID, questionID)
}

// Config selects and configures the object store backend
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	SecurityToken string
	Bucket        string
	Prefix        string
	PublicBase    string
}

// Enabled reports whether enough settings are present to reach OSS.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// New returns an OSS-backed store when configured, otherwise an in-memory store
// serving URLs under PublicBase.
func New(cfg Config) (ObjectStore, error) {
	if !cfg.Enabled() {
		return NewMemoryStore(cfg.PublicBase), nil
	}
	return NewOSSStore(cfg)
}

func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
