package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"
)

// MinIOClient implements Client against a MinIO (or any S3-compatible)
// endpoint. Each dataset repository is a key prefix inside one bucket.
type MinIOClient struct {
	client  *minio.Client
	cfg     *Config
	limiter *rate.Limiter
}

// NewMinIOClient creates a MinIO-backed registry client. The credential pair
// comes from the configured token or the TokenEnv environment variable;
// a missing token is a fatal configuration error.
func NewMinIOClient(ctx context.Context, cfg *Config) (*MinIOClient, error) {
	accessKey, secretKey, err := resolveToken(cfg.Token)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOClient{client: client, cfg: cfg, limiter: newLimiter(cfg)}, nil
}

func (c *MinIOClient) repoURL(repoID string) string {
	scheme := "http"
	if c.cfg.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.cfg.Endpoint, c.cfg.Bucket, repoID)
}

func markerKey(repoID string) string {
	return path.Join(repoID, internalPrefix, "repo.json")
}

// CreateRepo ensures the bucket exists, then writes the repository marker.
func (c *MinIOClient) CreateRepo(ctx context.Context, repoID string, private, existOK bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	exists, err := c.client.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return "", fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
			return "", fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	_, err = c.client.StatObject(ctx, c.cfg.Bucket, markerKey(repoID), minio.StatObjectOptions{})
	if err == nil {
		if !existOK {
			return "", fmt.Errorf("repository %s: %w", repoID, ErrRepoExists)
		}
		return c.repoURL(repoID), nil
	}
	if resp := minio.ToErrorResponse(err); resp.StatusCode != http.StatusNotFound {
		return "", fmt.Errorf("failed to check repository %s: %w", repoID, err)
	}

	marker, err := json.Marshal(repoMarker{RepoID: repoID, Private: private, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to encode repository marker: %w", err)
	}
	_, err = c.client.PutObject(ctx, c.cfg.Bucket, markerKey(repoID),
		bytes.NewReader(marker), int64(len(marker)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to create repository %s: %w", repoID, err)
	}

	log.Printf("Created dataset repository: %s", c.repoURL(repoID))
	return c.repoURL(repoID), nil
}

// Upload pushes every file under localDir into the repository and records a
// commit. The local path is validated before any remote call.
func (c *MinIOClient) Upload(ctx context.Context, localDir, repoID, commitMessage string) error {
	files, err := collectLocalFiles(localDir)
	if err != nil {
		return err
	}

	for _, rel := range files {
		if err := waitForSlot(ctx, c.limiter); err != nil {
			return fmt.Errorf("upload interrupted: %w", err)
		}
		key := path.Join(repoID, rel)
		_, err := c.client.FPutObject(ctx, c.cfg.Bucket, key, filepath.Join(localDir, filepath.FromSlash(rel)), minio.PutObjectOptions{})
		if err != nil {
			log.Printf("Failed to upload %s: %v", rel, err)
			return fmt.Errorf("failed to upload %s: %w", rel, err)
		}
	}

	if err := c.writeCommit(ctx, repoID, commitMessage, files); err != nil {
		return err
	}

	log.Printf("Successfully uploaded %d files to %s", len(files), c.repoURL(repoID))
	return nil
}

func (c *MinIOClient) writeCommit(ctx context.Context, repoID, message string, files []string) error {
	record := commitRecord{
		ID:        uuid.NewString(),
		Message:   message,
		Files:     files,
		Timestamp: time.Now().UTC(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode commit record: %w", err)
	}
	key := path.Join(repoID, internalPrefix, "commits", record.ID+".json")
	_, err = c.client.PutObject(ctx, c.cfg.Bucket, key,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to record commit: %w", err)
	}
	return nil
}

// Download fetches the repository's data files. With a split, only the files
// under data/<split> are considered. In streaming mode files are opened
// lazily from the remote instead of staged to a temporary directory.
func (c *MinIOClient) Download(ctx context.Context, repoID, split string, streaming bool) (*Dataset, error) {
	prefix := repoID + "/"
	if split != "" {
		prefix = path.Join(repoID, "data", split)
	}

	objectCh := c.client.ListObjects(ctx, c.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	ds := &Dataset{RepoID: repoID}
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list repository %s: %w", repoID, object.Err)
		}
		rel, err := filepath.Rel(repoID, object.Key)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if isInternalKey(rel) {
			continue
		}
		key := object.Key
		ds.Files = append(ds.Files, DatasetFile{
			Name: rel,
			Size: object.Size,
			open: func(ctx context.Context) (io.ReadCloser, error) {
				obj, err := c.client.GetObject(ctx, c.cfg.Bucket, key, minio.GetObjectOptions{})
				if err != nil {
					return nil, fmt.Errorf("failed to open %s: %w", key, err)
				}
				return obj, nil
			},
		})
	}

	if streaming {
		return ds, nil
	}

	dir, err := os.MkdirTemp("", "dataforge-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	ds.Dir = dir
	for i := range ds.Files {
		if err := waitForSlot(ctx, c.limiter); err != nil {
			return nil, fmt.Errorf("download interrupted: %w", err)
		}
		local := filepath.Join(dir, filepath.FromSlash(ds.Files[i].Name))
		key := path.Join(repoID, ds.Files[i].Name)
		if err := c.client.FGetObject(ctx, c.cfg.Bucket, key, local, minio.GetObjectOptions{}); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", key, err)
		}
		ds.Files[i].LocalPath = local
	}

	log.Printf("Successfully downloaded dataset %s to %s", repoID, dir)
	return ds, nil
}

// UpdateCard uploads the dataset card file into the repository.
func (c *MinIOClient) UpdateCard(ctx context.Context, repoID, cardPath, commitMessage string) error {
	if _, err := os.Stat(cardPath); err != nil {
		return fmt.Errorf("dataset card path does not exist: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	key := path.Join(repoID, cardObjectName)
	_, err := c.client.FPutObject(ctx, c.cfg.Bucket, key, cardPath,
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		log.Printf("Failed to update dataset card for %s: %v", repoID, err)
		return fmt.Errorf("failed to update dataset card: %w", err)
	}

	if err := c.writeCommit(ctx, repoID, commitMessage, []string{cardObjectName}); err != nil {
		return err
	}

	log.Printf("Successfully updated dataset card for %s", repoID)
	return nil
}

// DeleteRepo removes every object under the repository prefix.
func (c *MinIOClient) DeleteRepo(ctx context.Context, repoID, commitMessage string) error {
	objectCh := c.client.ListObjects(ctx, c.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    repoID + "/",
		Recursive: true,
	})

	removed := 0
	for object := range objectCh {
		if object.Err != nil {
			return fmt.Errorf("failed to list repository %s: %w", repoID, object.Err)
		}
		if err := waitForSlot(ctx, c.limiter); err != nil {
			return fmt.Errorf("delete interrupted: %w", err)
		}
		if err := c.client.RemoveObject(ctx, c.cfg.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("Failed to delete %s: %v", object.Key, err)
			return fmt.Errorf("failed to delete %s: %w", object.Key, err)
		}
		removed++
	}

	log.Printf("Successfully deleted dataset %s (%d objects, %s)", repoID, removed, commitMessage)
	return nil
}
