// Package pipeline orchestrates the fetch, filter and translate stages
// that build a developer profile for one subject.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/devfolio/profile-agent/internal/config"
	"github.com/devfolio/profile-agent/internal/profile"
	"github.com/devfolio/profile-agent/internal/schemas"
	"github.com/devfolio/profile-agent/internal/stage"
)

// Stage names, in execution order.
const (
	StageFetch     = "fetch"
	StageFilter    = "filter"
	StageTranslate = "translate"
)

// rawResultsFile is the fetch stage output the filter stage consumes.
const rawResultsFile = "RESULTS.txt"

// RunFunc executes one stage. Tests substitute deterministic fakes.
type RunFunc func(ctx context.Context, spec stage.Spec) (*stage.Result, error)

// Result is the envelope returned from a successful pipeline run.
// TranslatedData is null when the translate stage wrote no artifact.
type Result struct {
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	Username       string          `json:"username"`
	FilteredData   json.RawMessage `json:"filteredData,omitempty"`
	TranslatedData json.RawMessage `json:"translatedData"`
}

// Pipeline runs the three stages in order for one subject at a time.
// Each subject owns a working directory under the pipeline root, a keyed
// mutex serializes runs per subject, and a weighted semaphore bounds the
// number of concurrent runs across subjects.
type Pipeline struct {
	cfg *config.Config
	run RunFunc
	log zerolog.Logger
	sem *semaphore.Weighted

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Pipeline executing stages as real child processes.
func New(cfg *config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		run:   stage.Run,
		log:   log,
		sem:   semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		locks: make(map[string]*sync.Mutex),
	}
}

// Process runs fetch, filter and translate for the subject, short-circuiting
// on the first failure. Stage errors are annotated with subject context but
// their kind (timeout vs non-zero exit) is preserved for the caller.
func (p *Pipeline) Process(ctx context.Context, username string) (*Result, error) {
	lock := p.subjectLock(username)
	lock.Lock()
	defer lock.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	workdir := filepath.Join(p.cfg.PipelineDir, username)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory for %s: %w", username, err)
	}

	profileURL := strings.TrimSuffix(p.cfg.ProfileURLBase, "/") + "/" + username

	specs := []stage.Spec{
		{
			Name:    StageFetch,
			Exe:     p.cfg.FetchExe,
			Args:    []string{profileURL},
			Dir:     workdir,
			Timeout: p.cfg.FetchTimeout,
		},
		{
			Name:    StageFilter,
			Exe:     p.cfg.FilterExe,
			Args:    []string{filepath.Join(workdir, rawResultsFile)},
			Dir:     workdir,
			Timeout: p.cfg.FilterTimeout,
		},
		{
			Name:    StageTranslate,
			Exe:     p.cfg.TranslateExe,
			Args:    []string{filepath.Join(workdir, profile.ArtifactFiltered.Filename())},
			Dir:     workdir,
			Timeout: p.cfg.TranslateTimeout,
		},
	}

	started := time.Now()
	for _, spec := range specs {
		p.log.Info().Str("username", username).Str("stage", spec.Name).Msg("running pipeline stage")
		stageStart := time.Now()
		if _, err := p.run(ctx, spec); err != nil {
			p.log.Error().Err(err).Str("username", username).Str("stage", spec.Name).Msg("pipeline stage failed")
			return nil, fmt.Errorf("pipeline for %s: %w", username, err)
		}
		p.log.Debug().Str("username", username).Str("stage", spec.Name).
			Dur("duration", time.Since(stageStart)).Msg("pipeline stage completed")
	}

	res := &Result{
		Status:         "success",
		Message:        fmt.Sprintf("Pipeline completed for %s", username),
		Username:       username,
		FilteredData:   p.loadArtifact(workdir, username, profile.ArtifactFiltered, schemas.ValidateFiltered),
		TranslatedData: p.loadArtifact(workdir, username, profile.ArtifactTranslated, schemas.ValidateTranslated),
	}

	p.log.Info().Str("username", username).Dur("duration", time.Since(started)).Msg("pipeline completed")
	return res, nil
}

// loadArtifact reads a stage artifact if present. Absence is tolerated and
// schema mismatches are logged, never fatal: the stages already reported
// success and the envelope only carries what they produced.
func (p *Pipeline) loadArtifact(workdir, username string, kind profile.ArtifactKind, check func([]byte) error) json.RawMessage {
	path := filepath.Join(workdir, kind.Filename())
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn().Err(err).Str("username", username).Str("artifact", string(kind)).Msg("failed to read artifact")
		}
		return nil
	}
	if !json.Valid(data) {
		p.log.Warn().Str("username", username).Str("artifact", string(kind)).Msg("artifact is not valid JSON, omitting from result")
		return nil
	}
	if err := check(data); err != nil {
		p.log.Warn().Err(err).Str("username", username).Str("artifact", string(kind)).Msg("artifact does not match schema")
	}
	return data
}

// subjectLock returns the mutex guarding pipeline runs for one subject.
func (p *Pipeline) subjectLock(username string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[username]
	if !ok {
		l = &sync.Mutex{}
		p.locks[username] = l
	}
	return l
}
