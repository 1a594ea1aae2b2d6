package db

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted identity record for an external code-hosting
// identity. GitHubID is unique; the row is created on first successful
// identity verification and LastLogin is bumped on later ones.
type User struct {
	ID        uuid.UUID `json:"id"`
	GitHubID  int64     `json:"github_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}
