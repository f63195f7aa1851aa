package drops

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness constraint already holds the key.
	ErrDuplicate = errors.New("duplicate")
	// ErrPublish wraps failures from the outbound publish collaborator.
	ErrPublish = errors.New("publish failed")
)
