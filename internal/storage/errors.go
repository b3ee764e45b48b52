package storage

import "errors"

var (
	ErrUnreachable       = errors.New("storage backend unreachable")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
