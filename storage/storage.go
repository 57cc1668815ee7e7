package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotFound = errors.New("object not found")

// Storage interface for snapshot blob storage operations
type Storage interface {
	// Upload stores an object under key and returns the storage path
	Upload(ctx context.Context, key string, data io.Reader) (string, error)

	// Download retrieves an object by key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// List returns every stored key
	List(ctx context.Context) ([]string, error)
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeRedis StorageType = "redis"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Prefix     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
	RedisURL     string // For Redis storage
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		localPath := cfg.LocalPath
		if localPath == "" {
			localPath = "data/dossiers"
		}
		return NewLocalStorage(localPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	case StorageTypeRedis:
		return NewRedisStorage(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

const objectSuffix = ".json"

// objectName maps a key onto a flat, traversal-free object name
func objectName(key string) string {
	name := strings.TrimSpace(key)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name + objectSuffix
}

// keyFromObject is the inverse of objectName for names it produced
func keyFromObject(name string) (string, bool) {
	if !strings.HasSuffix(name, objectSuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, objectSuffix), true
}
