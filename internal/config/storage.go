package config

import "strings"

// StorageConfig selects and configures the blob store that holds uploaded
// files.  "disk" writes under Dir; "minio" puts objects into Bucket.
type StorageConfig struct {
	Backend   string
	Dir       string
	URLPrefix string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

// LoadStorageConfig reads UPLOAD_* and MINIO_* variables.
func LoadStorageConfig() StorageConfig {
	prefix := "/" + strings.Trim(envStr("UPLOAD_URL_PREFIX", "/uploads"), "/")
	return StorageConfig{
		Backend:   strings.ToLower(envStr("UPLOAD_BACKEND", "disk")),
		Dir:       envStr("UPLOAD_DIR", "uploads"),
		URLPrefix: prefix,

		MinIOEndpoint:  envStr("MINIO_ENDPOINT", ""),
		MinIOAccessKey: envStr("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: envStr("MINIO_SECRET_KEY", ""),
		MinIOBucket:    envStr("MINIO_BUCKET", "uploads"),
		MinIOUseSSL:    envBool("MINIO_USE_SSL", false),
	}
}
