package server

import (
	"errors"
	"net/http"

	"github.com/devfolio/profile-agent/internal/profile"
	"github.com/devfolio/profile-agent/internal/stage"
)

// HTTPStatus maps a pipeline or composition error to a response status.
// Error kinds from lower layers are preserved, never collapsed:
//   - stage timeout        -> 408 (caller may safely retry the run)
//   - non-zero stage exit  -> 400 (diagnostic text travels to the caller)
//   - missing artifact     -> 404 (normal first-time state)
//   - corrupt artifact     -> 500 (operator problem, not the caller's)
func HTTPStatus(err error) int {
	var timeoutErr *stage.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusRequestTimeout
	}

	var exitErr *stage.ExitError
	if errors.As(err, &exitErr) {
		return http.StatusBadRequest
	}

	var notFound *profile.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}

	// StartError (stage executable missing or not runnable) and
	// CorruptArtifactError are deployment problems.
	return http.StatusInternalServerError
}
