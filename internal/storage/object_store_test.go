package storage

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhub/api/internal/config"
)

// fakeS3 serves path-style object requests for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, headers: map[string]http.Header{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/uploads/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.headers[key] = r.Header.Clone()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, fake *fakeS3) *ObjectStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "uploads",
		Region:    "us-east-1",
	}, zerolog.Nop(), nil)
	require.NoError(t, err)
	return store
}

func TestUpload(t *testing.T) {
	fake := newFakeS3()
	store := newTestStore(t, fake)

	res, err := store.Upload(context.Background(), strings.NewReader("hello"), 5, "docs/readme.txt", "")
	require.NoError(t, err)

	assert.Equal(t, "docs/readme.txt", res.Key)
	assert.Contains(t, res.URL, "/uploads/docs/readme.txt")
	assert.Contains(t, res.URL, "X-Amz-Signature=")
	assert.True(t, strings.HasSuffix(res.PublicURL, "/uploads/docs/readme.txt"), res.PublicURL)

	hdr := fake.headers["docs/readme.txt"]
	require.NotNil(t, hdr)
	assert.Equal(t, "public-read", hdr.Get("X-Amz-Acl"))
	assert.True(t, strings.HasPrefix(hdr.Get("Content-Type"), "text/plain"), hdr.Get("Content-Type"))
}

func TestUploadRequiresKey(t *testing.T) {
	store := newTestStore(t, newFakeS3())

	_, err := store.Upload(context.Background(), strings.NewReader("x"), 1, "", "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestDownloadMissingObjectIsNotFatal(t *testing.T) {
	store := newTestStore(t, newFakeS3())

	local, err := store.Download(context.Background(), "missing/file.txt", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestDownloadAndZip(t *testing.T) {
	fake := newFakeS3()
	fake.objects["a/one.txt"] = []byte("first")
	fake.objects["b/two.txt"] = []byte("second")
	store := newTestStore(t, fake)
	dir := t.TempDir()

	local, err := store.Download(context.Background(), "a/one.txt", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	require.NoError(t, os.Remove(local))

	zipPath, err := store.DownloadZip(context.Background(), []string{"a/one.txt", "b/two.txt", "c/missing.txt"}, "bundle", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bundle.zip"), zipPath)

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"one.txt", "two.txt"}, names)

	_, err = os.Stat(filepath.Join(dir, "one.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDelete(t *testing.T) {
	fake := newFakeS3()
	fake.objects["a/one.txt"] = []byte("first")
	store := newTestStore(t, fake)

	require.NoError(t, store.Delete(context.Background(), "a/one.txt"))
	assert.NotContains(t, fake.objects, "a/one.txt")
	assert.ErrorIs(t, store.Delete(context.Background(), ""), ErrEmptyKey)
}

func TestPresignedURL(t *testing.T) {
	store := newTestStore(t, newFakeS3())

	u, err := store.PresignedURL(context.Background(), "a/one.txt", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "/uploads/a/one.txt")
	assert.Contains(t, u, "X-Amz-Expires=3600")

	u, err = store.PresignedURL(context.Background(), "a/one.txt", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Expires=300")
}

func TestPublicURL(t *testing.T) {
	s := &ObjectStore{cfg: config.StorageConfig{Endpoint: "s3.amazonaws.com", Bucket: "uploads"}}
	assert.Equal(t, "https://uploads.s3.amazonaws.com/a/b.png", s.PublicURL("a/b.png"))

	s.cfg = config.StorageConfig{Endpoint: "minio.local:9000", Bucket: "uploads"}
	assert.Equal(t, "https://minio.local:9000/uploads/a/b.png", s.PublicURL("a/b.png"))

	s.cfg.PublicBaseURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/a/b.png", s.PublicURL("a/b.png"))
}

func TestZipName(t *testing.T) {
	assert.Equal(t, "bundle.zip", ZipName("bundle"))
	assert.Equal(t, "bundle.zip", ZipName("bundle.zip"))
}
