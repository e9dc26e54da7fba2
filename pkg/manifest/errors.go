package manifest

import "errors"

var (
	// ErrNotFound indicates the manifest object does not exist at the given location.
	ErrNotFound = errors.New("manifest not found")
	// ErrFormat indicates the manifest document is missing required fields or is malformed.
	ErrFormat = errors.New("malformed manifest")
	// ErrSchemaMismatch indicates the schema is missing a required column.
	ErrSchemaMismatch = errors.New("schema missing required column")
	// ErrChecksum indicates an MD5 checksum verification failure.
	ErrChecksum = errors.New("checksum mismatch")
)
