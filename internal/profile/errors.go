package profile

import "fmt"

// NotFoundError indicates no artifact of the requested kind exists yet for
// the subject. This is the normal first-time state, not an operator alert.
type NotFoundError struct {
	Username string
	Kind     ArtifactKind
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s data found for %s", e.Kind, e.Username)
}

// CorruptArtifactError indicates the artifact file exists but is not
// well-formed JSON. Nothing partial is ever returned from it.
type CorruptArtifactError struct {
	Path  string
	Cause error
}

func (e *CorruptArtifactError) Error() string {
	return fmt.Sprintf("corrupt artifact %s: %v", e.Path, e.Cause)
}

func (e *CorruptArtifactError) Unwrap() error {
	return e.Cause
}
