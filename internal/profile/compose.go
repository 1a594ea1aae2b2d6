package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/devfolio/profile-agent/internal/db"
)

// DefaultBio is used when neither the artifact nor the identity record
// supplies a bio.
const DefaultBio = "No bio available"

// IdentityStore is the read-only view of the identity store the composer
// needs for enrichment.
type IdentityStore interface {
	FindUser(ctx context.Context, username string) (*db.User, error)
}

// Composer reads stage artifacts and merges them with the identity record
// into a ComposedProfile. It never persists anything; composition happens
// on every read.
type Composer struct {
	pipelineDir string
	store       IdentityStore
	log         zerolog.Logger
}

// NewComposer creates a Composer rooted at the pipeline working directory.
// store may be nil; enrichment is best-effort.
func NewComposer(pipelineDir string, store IdentityStore, log zerolog.Logger) *Composer {
	return &Composer{pipelineDir: pipelineDir, store: store, log: log}
}

// Compose loads the artifact of the given kind for the subject and returns
// the schema-complete response document. It fails with *NotFoundError when
// the artifact does not exist and *CorruptArtifactError when it cannot be
// parsed.
func (c *Composer) Compose(ctx context.Context, kind ArtifactKind, username string) (*ComposedProfile, error) {
	path := filepath.Join(c.pipelineDir, username, kind.Filename())

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Username: username, Kind: kind}
		}
		return nil, &CorruptArtifactError{Path: path, Cause: err}
	}

	var doc ComposedProfile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptArtifactError{Path: path, Cause: err}
	}

	c.enrich(ctx, &doc, username)
	doc.fillDefaults()
	return &doc, nil
}

// enrich back-fills profile header fields from the identity record. The
// username is always forced to the subject; a stale value inside the
// artifact is never trusted.
func (c *Composer) enrich(ctx context.Context, doc *ComposedProfile, username string) {
	var identity *db.User
	if c.store != nil {
		u, err := c.store.FindUser(ctx, username)
		if err != nil {
			c.log.Warn().Err(err).Str("username", username).Msg("identity lookup failed, composing without enrichment")
		} else {
			identity = u
		}
	}

	doc.Profile.Username = username

	if doc.Profile.Name == "" {
		if identity != nil && identity.Name != "" {
			doc.Profile.Name = identity.Name
		} else {
			doc.Profile.Name = username
		}
	}
	if doc.Profile.AvatarURL == "" && identity != nil {
		doc.Profile.AvatarURL = identity.AvatarURL
	}
	if doc.Profile.Bio == "" {
		doc.Profile.Bio = DefaultBio
	}
}
