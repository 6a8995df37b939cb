package util

import "errors"

var (
	ErrTestNotFound     = errors.New("test not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrFixturesLoaded   = errors.New("fixtures skipped: data already exists")
)
