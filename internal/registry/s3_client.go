package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// S3Client implements Client against AWS S3. The repository layout matches
// the MinIO backend: one key prefix per repository inside one bucket.
type S3Client struct {
	client  *s3.Client
	cfg     *Config
	limiter *rate.Limiter
}

// NewS3Client creates an S3-backed registry client. The credential pair comes
// from the configured token or the TokenEnv environment variable.
func NewS3Client(ctx context.Context, cfg *Config) (*S3Client, error) {
	accessKey, secretKey, err := resolveToken(cfg.Token)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			scheme := "https"
			if !cfg.Secure {
				scheme = "http"
			}
			o.BaseEndpoint = aws.String(scheme + "://" + cfg.Endpoint)
			// Path-style addressing for S3-compatible endpoints.
			o.UsePathStyle = true
		}
	})

	return &S3Client{client: client, cfg: cfg, limiter: newLimiter(cfg)}, nil
}

func (c *S3Client) repoURL(repoID string) string {
	if c.cfg.Endpoint != "" {
		scheme := "https"
		if !c.cfg.Secure {
			scheme = "http"
		}
		return fmt.Sprintf("%s://%s/%s/%s", scheme, c.cfg.Endpoint, c.cfg.Bucket, repoID)
	}
	return fmt.Sprintf("s3://%s/%s", c.cfg.Bucket, repoID)
}

// CreateRepo ensures the bucket exists, then writes the repository marker.
func (c *S3Client) CreateRepo(ctx context.Context, repoID string, private, existOK bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(markerKey(repoID)),
	})
	if err == nil {
		if !existOK {
			return "", fmt.Errorf("repository %s: %w", repoID, ErrRepoExists)
		}
		return c.repoURL(repoID), nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to check repository %s: %w", repoID, err)
	}

	marker, err := json.Marshal(repoMarker{RepoID: repoID, Private: private, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to encode repository marker: %w", err)
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(markerKey(repoID)),
		Body:        bytes.NewReader(marker),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create repository %s: %w", repoID, err)
	}

	log.Printf("Created dataset repository: %s", c.repoURL(repoID))
	return c.repoURL(repoID), nil
}

func (c *S3Client) ensureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.cfg.Bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(c.cfg.Bucket)}
	if c.cfg.Region != "" && c.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.cfg.Region),
		}
	}
	if _, err := c.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload pushes every file under localDir into the repository and records a
// commit. The local path is validated before any remote call.
func (c *S3Client) Upload(ctx context.Context, localDir, repoID, commitMessage string) error {
	files, err := collectLocalFiles(localDir)
	if err != nil {
		return err
	}

	for _, rel := range files {
		if err := waitForSlot(ctx, c.limiter); err != nil {
			return fmt.Errorf("upload interrupted: %w", err)
		}
		if err := c.putFile(ctx, path.Join(repoID, rel), filepath.Join(localDir, filepath.FromSlash(rel)), ""); err != nil {
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

func (c *S3Client) putFile(ctx context.Context, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err = c.client.PutObject(ctx, input)
	return err
}

func (c *S3Client) writeCommit(ctx context.Context, repoID, message string, files []string) error {
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
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(path.Join(repoID, internalPrefix, "commits", record.ID+".json")),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to record commit: %w", err)
	}
	return nil
}

// Download fetches the repository's data files, optionally restricted to one
// split, staging them to disk unless streaming is requested.
func (c *S3Client) Download(ctx context.Context, repoID, split string, streaming bool) (*Dataset, error) {
	prefix := repoID + "/"
	if split != "" {
		prefix = path.Join(repoID, "data", split)
	}

	ds := &Dataset{RepoID: repoID}
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list repository %s: %w", repoID, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			rel, err := filepath.Rel(repoID, key)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if isInternalKey(rel) {
				continue
			}
			objectKey := key
			ds.Files = append(ds.Files, DatasetFile{
				Name: rel,
				Size: aws.ToInt64(object.Size),
				open: func(ctx context.Context) (io.ReadCloser, error) {
					out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
						Bucket: aws.String(c.cfg.Bucket),
						Key:    aws.String(objectKey),
					})
					if err != nil {
						return nil, fmt.Errorf("failed to open %s: %w", objectKey, err)
					}
					return out.Body, nil
				},
			})
		}
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
		if err := c.stageFile(ctx, repoID, dir, &ds.Files[i]); err != nil {
			return nil, err
		}
	}

	log.Printf("Successfully downloaded dataset %s to %s", repoID, dir)
	return ds, nil
}

func (c *S3Client) stageFile(ctx context.Context, repoID, dir string, file *DatasetFile) error {
	local := filepath.Join(dir, filepath.FromSlash(file.Name))
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	body, err := file.open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", local, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	file.LocalPath = local
	return nil
}

// UpdateCard uploads the dataset card file into the repository.
func (c *S3Client) UpdateCard(ctx context.Context, repoID, cardPath, commitMessage string) error {
	if _, err := os.Stat(cardPath); err != nil {
		return fmt.Errorf("dataset card path does not exist: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := c.putFile(ctx, path.Join(repoID, cardObjectName), cardPath, "application/json"); err != nil {
		log.Printf("Failed to update dataset card for %s: %v", repoID, err)
		return fmt.Errorf("failed to update dataset card: %w", err)
	}

	if err := c.writeCommit(ctx, repoID, commitMessage, []string{cardObjectName}); err != nil {
		return err
	}

	log.Printf("Successfully updated dataset card for %s", repoID)
	return nil
}

// DeleteRepo removes every object under the repository prefix in batches.
func (c *S3Client) DeleteRepo(ctx context.Context, repoID, commitMessage string) error {
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.cfg.Bucket),
		Prefix: aws.String(repoID + "/"),
	})

	removed := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list repository %s: %w", repoID, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, object := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: object.Key})
		}
		if err := waitForSlot(ctx, c.limiter); err != nil {
			return fmt.Errorf("delete interrupted: %w", err)
		}
		_, err = c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.cfg.Bucket),
			Delete: &types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
		})
		if err != nil {
			log.Printf("Failed to delete objects in %s: %v", repoID, err)
			return fmt.Errorf("failed to delete repository %s: %w", repoID, err)
		}
		removed += len(identifiers)
	}

	log.Printf("Successfully deleted dataset %s (%d objects, %s)", repoID, removed, commitMessage)
	return nil
}
