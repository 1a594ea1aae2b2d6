package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfolio/profile-agent/internal/config"
	"github.com/devfolio/profile-agent/internal/pipeline"
	"github.com/devfolio/profile-agent/internal/profile"
	"github.com/devfolio/profile-agent/internal/stage"
)

const testSecret = "test-secret"

type fakePipeline struct {
	result *pipeline.Result
	err    error
	calls  []string
}

func (f *fakePipeline) Process(_ context.Context, username string) (*pipeline.Result, error) {
	f.calls = append(f.calls, username)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeComposer struct {
	doc   *profile.ComposedProfile
	err   error
	calls int
}

func (f *fakeComposer) Compose(_ context.Context, _ profile.ArtifactKind, _ string) (*profile.ComposedProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newTestServer(pipe Runner, comp Composer) *Server {
	return &Server{
		pipeline: pipe,
		composer: comp,
		jwt:      NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 1}),
		log:      zerolog.Nop(),
	}
}

func bearerFor(t *testing.T, s *Server, username string) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(username)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(s *Server, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleProcess(t *testing.T) {
	t.Run("no credential is 401 and runs nothing", func(t *testing.T) {
		pipe := &fakePipeline{}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, pipe.calls, "denied request must trigger zero stage work")
	})

	t.Run("caller is not subject is 403 and runs nothing", func(t *testing.T) {
		pipe := &fakePipeline{}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", bearerFor(t, s, "mallory"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, pipe.calls)

		// The denial must not reveal whether the subject exists.
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "forbidden", body["error"])
	})

	t.Run("success returns the result envelope", func(t *testing.T) {
		pipe := &fakePipeline{result: &pipeline.Result{
			Status:         "success",
			Message:        "Pipeline completed for octocat",
			Username:       "octocat",
			TranslatedData: json.RawMessage(`{"profile":{"name":"The Octocat"}}`),
		}}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"octocat"}, pipe.calls)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "octocat", body["username"])
		assert.NotNil(t, body["translatedData"])
	})

	t.Run("stage timeout is 408 with the stage name", func(t *testing.T) {
		pipe := &fakePipeline{err: fmt.Errorf("pipeline for octocat: %w",
			&stage.TimeoutError{Stage: "fetch", Timeout: 2 * time.Minute})}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusRequestTimeout, rec.Code)
		assert.Contains(t, rec.Body.String(), "fetch")
	})

	t.Run("stage failure is 400 with the diagnostic text", func(t *testing.T) {
		pipe := &fakePipeline{err: fmt.Errorf("pipeline for octocat: %w",
			&stage.ExitError{Stage: "filter", Code: 1, Stderr: "rate limit exceeded"})}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate limit exceeded")
	})

	t.Run("missing stage executable is 500", func(t *testing.T) {
		pipe := &fakePipeline{err: &stage.StartError{Stage: "fetch", Cause: fmt.Errorf("no such file")}}
		s := newTestServer(pipe, &fakeComposer{})

		rec := doRequest(s, http.MethodPost, "/process/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleReads(t *testing.T) {
	doc := &profile.ComposedProfile{
		Profile:    profile.ProfileInfo{Name: "The Octocat", Username: "octocat", Bio: profile.DefaultBio},
		Skills:     profile.Skills{Radar: []profile.RadarSkill{}},
		Languages:  []profile.Language{},
		Frameworks: []string{},
		Libraries:  []string{},
	}

	t.Run("translated read returns the composed profile", func(t *testing.T) {
		comp := &fakeComposer{doc: doc}
		s := newTestServer(&fakePipeline{}, comp)

		rec := doRequest(s, http.MethodGet, "/get-translated-data/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, comp.calls)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		for _, key := range []string{"profile", "statsHome", "skills", "languages", "frameworks", "libraries", "recentWorks"} {
			assert.Contains(t, body, key)
		}
	})

	t.Run("filtered read requires caller to be subject", func(t *testing.T) {
		comp := &fakeComposer{doc: doc}
		s := newTestServer(&fakePipeline{}, comp)

		rec := doRequest(s, http.MethodGet, "/get-filtered-data/octocat", bearerFor(t, s, "mallory"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Zero(t, comp.calls)
	})

	t.Run("no artifact yet is 404", func(t *testing.T) {
		comp := &fakeComposer{err: &profile.NotFoundError{Username: "octocat", Kind: profile.ArtifactTranslated}}
		s := newTestServer(&fakePipeline{}, comp)

		rec := doRequest(s, http.MethodGet, "/get-translated-data/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("corrupt artifact is 500", func(t *testing.T) {
		comp := &fakeComposer{err: &profile.CorruptArtifactError{Path: "translated.json", Cause: fmt.Errorf("unexpected end of JSON input")}}
		s := newTestServer(&fakePipeline{}, comp)

		rec := doRequest(s, http.MethodGet, "/get-translated-data/octocat", bearerFor(t, s, "octocat"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthIsUnauthenticated(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeComposer{})
	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenWithWrongClaimShapeIsUnauthenticated(t *testing.T) {
	pipe := &fakePipeline{}
	s := newTestServer(pipe, &fakeComposer{})

	// A token carrying the identity under "sub" instead of the declared
	// "username" claim must fail authentication, not sneak through as an
	// authorization mismatch.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "octocat",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/process/octocat", "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, pipe.calls)
}
