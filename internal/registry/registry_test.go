package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveToken(t *testing.T) {
	t.Run("explicit token", func(t *testing.T) {
		access, secret, err := resolveToken("ak:sk")
		if err != nil {
			t.Fatalf("resolveToken failed: %v", err)
		}
		if access != "ak" || secret != "sk" {
			t.Errorf("Expected ak/sk, got %s/%s", access, secret)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(TokenEnv, "envkey:envsecret")
		access, secret, err := resolveToken("")
		if err != nil {
			t.Fatalf("resolveToken failed: %v", err)
		}
		if access != "envkey" || secret != "envsecret" {
			t.Errorf("Expected env credentials, got %s/%s", access, secret)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		t.Setenv(TokenEnv, "")
		_, _, err := resolveToken("")
		if !errors.Is(err, ErrMissingToken) {
			t.Errorf("Expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		_, _, err := resolveToken("no-separator")
		if err == nil {
			t.Error("Expected error for malformed token")
		}
	})
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := &Config{Backend: "minio", Endpoint: "localhost:9000", Bucket: "datasets"}
	_, err := NewClient(context.Background(), cfg)
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken at construction, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Backend: "ftp", Endpoint: "x", Bucket: "b"})
	if err == nil {
		t.Error("Expected error for unsupported backend")
	}
	_, err = NewClient(context.Background(), &Config{Backend: "minio"})
	if err == nil {
		t.Error("Expected error for missing endpoint and bucket")
	}
}

func TestUploadChecksLocalPathBeforeRemoteCalls(t *testing.T) {
	cfg := &Config{Backend: "minio", Endpoint: "localhost:9000", Bucket: "datasets", Token: "ak:sk"}
	client, err := NewMinIOClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	err = client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), "repo", "msg")
	if err == nil {
		t.Fatal("Expected error for missing dataset path")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected precondition error, got %v", err)
	}
}

func TestUpdateCardChecksCardPath(t *testing.T) {
	cfg := &Config{Backend: "minio", Endpoint: "localhost:9000", Bucket: "datasets", Token: "ak:sk"}
	client, err := NewMinIOClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	err = client.UpdateCard(context.Background(), "repo", filepath.Join(t.TempDir(), "card.json"), "msg")
	if err == nil {
		t.Fatal("Expected error for missing card path")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected precondition error, got %v", err)
	}
}

func TestCollectLocalFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"card.json", "data/train.parquet"} {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := collectLocalFiles(dir)
	if err != nil {
		t.Fatalf("collectLocalFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %v", files)
	}
	found := map[string]bool{}
	for _, f := range files {
		found[f] = true
	}
	if !found["card.json"] || !found["data/train.parquet"] {
		t.Errorf("Unexpected file set: %v", files)
	}
}

func TestIsInternalKey(t *testing.T) {
	if !isInternalKey(".dataforge/repo.json") {
		t.Error("Marker object must be internal")
	}
	if !isInternalKey(".dataforge/commits/abc.json") {
		t.Error("Commit records must be internal")
	}
	if isInternalKey("data/train.parquet") {
		t.Error("Data files must not be internal")
	}
}

func TestDatasetFileOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := DatasetFile{Name: "f.txt", LocalPath: path}
	r, err := f.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 5)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("Expected hello, got %q", buf)
	}
}
