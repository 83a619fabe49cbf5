// Package registry publishes converted datasets to an object-storage-backed
// dataset registry and retrieves them again.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

// TokenEnv is the environment variable consulted for the registry
// authentication token when none is configured explicitly.
const TokenEnv = "DATAFORGE_REGISTRY_TOKEN"

// cardObjectName is the key of the dataset card inside a repository.
const cardObjectName = "dataset-card.json"

// internalPrefix holds repository markers and commit records.
const internalPrefix = ".dataforge"

var (
	// ErrMissingToken is returned at construction when neither the config
	// nor the environment supplies a registry token.
	ErrMissingToken = errors.New("registry token is required: set it in the configuration or via " + TokenEnv)

	// ErrRepoExists is returned by CreateRepo when the repository already
	// exists and existOK is false.
	ErrRepoExists = errors.New("dataset repository already exists")
)

// Config holds registry connection settings.
type Config struct {
	Backend  string `mapstructure:"backend" validate:"required,oneof=minio s3"`
	Endpoint string `mapstructure:"endpoint" validate:"required"`
	Bucket   string `mapstructure:"bucket" validate:"required"`
	Region   string `mapstructure:"region"`
	Secure   bool   `mapstructure:"secure"`
	// Token is the "accessKey:secretKey" credential pair. Falls back to
	// the TokenEnv environment variable when empty.
	Token string `mapstructure:"token"`
	// RateLimit caps bulk transfer requests per second; Burst allows short
	// spikes. Zero values disable pacing.
	RateLimit int `mapstructure:"rate_limit"`
	Burst     int `mapstructure:"burst"`
}

// Client is the dataset registry surface the rest of the system consumes.
// All calls may fail with transport or auth errors; failures are returned
// wrapped but otherwise unchanged, with no automatic retry.
type Client interface {
	// CreateRepo creates a dataset repository and returns its URL. With
	// existOK, an existing repository is left untouched and its URL
	// returned; without it, ErrRepoExists is reported.
	CreateRepo(ctx context.Context, repoID string, private, existOK bool) (string, error)

	// Upload pushes every file under localDir into the repository,
	// recording a commit with the given message. A failed upload leaves
	// already transferred files in place.
	Upload(ctx context.Context, localDir, repoID, commitMessage string) error

	// Download fetches the repository's data files, optionally restricted
	// to one split. In streaming mode files are opened lazily from the
	// remote instead of staged to disk.
	Download(ctx context.Context, repoID, split string, streaming bool) (*Dataset, error)

	// UpdateCard uploads the dataset card at cardPath into the repository.
	UpdateCard(ctx context.Context, repoID, cardPath, commitMessage string) error

	// DeleteRepo removes the repository and everything in it.
	DeleteRepo(ctx context.Context, repoID, commitMessage string) error
}

// NewClient constructs the backend named by cfg.Backend.
func NewClient(ctx context.Context, cfg *Config) (Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid registry configuration: %w", err)
	}
	switch cfg.Backend {
	case "minio":
		return NewMinIOClient(ctx, cfg)
	case "s3":
		return NewS3Client(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported registry backend %q", cfg.Backend)
}

var validate = validator.New()

// Dataset is a handle to downloaded repository contents.
type Dataset struct {
	RepoID string
	// Dir is the local staging directory; empty in streaming mode.
	Dir   string
	Files []DatasetFile
}

// DatasetFile is one file of a downloaded dataset.
type DatasetFile struct {
	// Name is the file's path relative to the repository root.
	Name string
	Size int64
	// LocalPath is set when the file was staged to disk.
	LocalPath string

	open func(ctx context.Context) (io.ReadCloser, error)
}

// Open returns the file contents, from disk when staged and from the remote
// in streaming mode.
func (f *DatasetFile) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.LocalPath != "" {
		r, err := os.Open(f.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.LocalPath, err)
		}
		return r, nil
	}
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content source", f.Name)
	}
	return f.open(ctx)
}

// repoMarker is the object written at <repo>/.dataforge/repo.json when a
// repository is created.
type repoMarker struct {
	RepoID    string    `json:"repo_id"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

// commitRecord is written under <repo>/.dataforge/commits/ for every upload.
type commitRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Files     []string  `json:"files"`
	Timestamp time.Time `json:"timestamp"`
}

// resolveToken splits the configured token (or its env fallback) into the
// access/secret credential pair.
func resolveToken(explicit string) (accessKey, secretKey string, err error) {
	token := explicit
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if token == "" {
		return "", "", ErrMissingToken
	}
	accessKey, secretKey, ok := strings.Cut(token, ":")
	if !ok || accessKey == "" || secretKey == "" {
		return "", "", fmt.Errorf("malformed registry token: expected accessKey:secretKey")
	}
	return accessKey, secretKey, nil
}

// isInternalKey reports whether key (relative to the repo root) belongs to
// registry bookkeeping rather than dataset content.
func isInternalKey(rel string) bool {
	return rel == internalPrefix || strings.HasPrefix(rel, internalPrefix+"/")
}

func newLimiter(cfg *Config) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RateLimit
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

func waitForSlot(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// collectLocalFiles validates that localDir exists and returns the relative
// paths of every regular file under it, in walk order. This is the
// precondition check that runs before any remote call.
func collectLocalFiles(localDir string) ([]string, error) {
	info, err := os.Stat(localDir)
	if err != nil {
		return nil, fmt.Errorf("dataset path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path %s is not a directory", localDir)
	}

	var files []string
	err = filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk dataset directory: %w", err)
	}
	return files, nil
}
