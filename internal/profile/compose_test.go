package profile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfolio/profile-agent/internal/db"
)

type fakeStore struct {
	user  *db.User
	err   error
	calls int
}

func (f *fakeStore) FindUser(_ context.Context, _ string) (*db.User, error) {
	f.calls++
	return f.user, f.err
}

func writeArtifact(t *testing.T, dir, username string, kind ArtifactKind, content string) {
	t.Helper()
	subjectDir := filepath.Join(dir, username)
	require.NoError(t, os.MkdirAll(subjectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subjectDir, kind.Filename()), []byte(content), 0o644))
}

func newTestComposer(dir string, store IdentityStore) *Composer {
	return NewComposer(dir, store, zerolog.Nop())
}

func TestCompose_NotFound(t *testing.T) {
	c := newTestComposer(t.TempDir(), nil)

	_, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
	require.Error(t, err)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "octocat", notFound.Username)
	assert.Equal(t, ArtifactTranslated, notFound.Kind)
}

func TestCompose_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "octocat", ArtifactTranslated, `{"profile": {`)
	c := newTestComposer(dir, nil)

	_, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
	require.Error(t, err)

	var corrupt *CorruptArtifactError
	assert.True(t, errors.As(err, &corrupt))
}

func TestCompose_GuaranteedSections(t *testing.T) {
	dir := t.TempDir()
	// An artifact with only a profile section must still yield every
	// section the client expects.
	writeArtifact(t, dir, "octocat", ArtifactTranslated, `{"profile": {"bio": "builds things"}}`)
	c := newTestComposer(dir, nil)

	doc, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"profile", "statsHome", "skills", "languages", "frameworks", "libraries", "projects", "recentWorks"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, []any{}, m["languages"])
	assert.Equal(t, []any{}, m["frameworks"])
	assert.Equal(t, []any{}, m["skills"].(map[string]any)["radar"])
	assert.Equal(t, []any{}, m["recentWorks"])
}

func TestCompose_UsernameAlwaysForced(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "octocat", ArtifactFiltered, `{"profile": {"username": "stale-name"}}`)
	c := newTestComposer(dir, nil)

	doc, err := c.Compose(context.Background(), ArtifactFiltered, "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", doc.Profile.Username)
}

func TestCompose_IdentityEnrichment(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "octocat", ArtifactTranslated, `{"profile": {}}`)

	t.Run("back-fills from identity record", func(t *testing.T) {
		store := &fakeStore{user: &db.User{
			Username:  "octocat",
			Name:      "The Octocat",
			AvatarURL: "https://avatars.example/octocat.png",
		}}
		c := newTestComposer(dir, store)

		doc, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
		require.NoError(t, err)
		assert.Equal(t, "The Octocat", doc.Profile.Name)
		assert.Equal(t, "https://avatars.example/octocat.png", doc.Profile.AvatarURL)
		assert.Equal(t, DefaultBio, doc.Profile.Bio)
		assert.Equal(t, 1, store.calls)
	})

	t.Run("artifact values win over identity record", func(t *testing.T) {
		writeArtifact(t, dir, "octocat", ArtifactTranslated,
			`{"profile": {"name": "From Artifact", "avatarUrl": "https://a/b.png", "bio": "hi"}}`)
		store := &fakeStore{user: &db.User{Name: "Ignored", AvatarURL: "https://ignored"}}
		c := newTestComposer(dir, store)

		doc, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
		require.NoError(t, err)
		assert.Equal(t, "From Artifact", doc.Profile.Name)
		assert.Equal(t, "https://a/b.png", doc.Profile.AvatarURL)
		assert.Equal(t, "hi", doc.Profile.Bio)
	})

	t.Run("missing identity record falls back to username", func(t *testing.T) {
		writeArtifact(t, dir, "ghost", ArtifactTranslated, `{"profile": {}}`)
		c := newTestComposer(dir, &fakeStore{})

		doc, err := c.Compose(context.Background(), ArtifactTranslated, "ghost")
		require.NoError(t, err)
		assert.Equal(t, "ghost", doc.Profile.Name)
	})

	t.Run("store failure does not fail composition", func(t *testing.T) {
		writeArtifact(t, dir, "ghost", ArtifactTranslated, `{"profile": {}}`)
		c := newTestComposer(dir, &fakeStore{err: errors.New("connection refused")})

		doc, err := c.Compose(context.Background(), ArtifactTranslated, "ghost")
		require.NoError(t, err)
		assert.Equal(t, "ghost", doc.Profile.Username)
	})
}

func TestCompose_LegacyFilteredProfileKeys(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "octocat", ArtifactFiltered,
		`{"profile": {"nameUser": "The Octocat", "avatar": "https://avatars.example/octocat.png"},
		  "statsHome": {"totalProjects": 12, "totalRating": 4.5, "totalLanguages": 6}}`)
	c := newTestComposer(dir, nil)

	doc, err := c.Compose(context.Background(), ArtifactFiltered, "octocat")
	require.NoError(t, err)
	assert.Equal(t, "The Octocat", doc.Profile.Name)
	assert.Equal(t, "https://avatars.example/octocat.png", doc.Profile.AvatarURL)
	assert.Equal(t, 12, doc.Stats.TotalProjects)
	assert.InDelta(t, 4.5, doc.Stats.TotalRating, 0.001)
}

func TestCompose_IdempotentRead(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "octocat", ArtifactTranslated,
		`{"profile": {"name": "The Octocat"},
		  "skills": {"radar": [{"subject": "Backend", "score": 80}]},
		  "languages": [{"name": "Go", "percentage": 61.5, "color": "#00ADD8"}],
		  "frameworks": ["chi"], "libraries": ["pgx"]}`)
	c := newTestComposer(dir, nil)

	first, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), ArtifactTranslated, "octocat")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
