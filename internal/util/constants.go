package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Context keys set by middleware.
const (
	ContextUserKey      = "user"
	ContextConfigKey    = "config"
	ContextRequestIDKey = "request_id"
)

const RequestIDHeader = "X-Request-ID"
