package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"authhub/api/internal/config"
	"authhub/api/internal/reporting"
)

const (
	DefaultPresignExpiry = time.Hour
	aclPublicRead        = "public-read"
	zipExt               = ".zip"
)

var ErrEmptyKey = errors.New("storage: object key is required")

type UploadResult struct {
	// URL is a presigned PUT URL for the stored key.
	URL       string
	Key       string
	PublicURL string
}

// ObjectStore wraps an S3 compatible bucket.
type ObjectStore struct {
	client   *minio.Client
	cfg      config.StorageConfig
	log      zerolog.Logger
	reporter reporting.Reporter
}

func NewObjectStore(cfg config.StorageConfig, log zerolog.Logger, reporter reporting.Reporter) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = DefaultPresignExpiry
	}
	if reporter == nil {
		reporter = reporting.Nop()
	}

	return &ObjectStore{
		client:   client,
		cfg:      cfg,
		log:      log.With().Str("component", "storage").Str("bucket", cfg.Bucket).Logger(),
		reporter: reporter,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Upload stores r under key with a public-read ACL. An empty contentType is guessed from the key.
func (s *ObjectStore) Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (UploadResult, error) {
	if key == "" {
		return UploadResult{}, ErrEmptyKey
	}
	if contentType == "" {
		contentType = guessContentType(key)
	}

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"x-amz-acl": aclPublicRead},
	})
	if err != nil {
		s.reporter.CaptureException(err, map[string]string{"component": "storage", "op": "upload"})
		return UploadResult{}, fmt.Errorf("put object %s: %w", key, err)
	}

	putURL, err := s.client.PresignedPutObject(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
	if err != nil {
		return UploadResult{}, fmt.Errorf("presign put %s: %w", key, err)
	}

	return UploadResult{
		URL:       putURL.String(),
		Key:       key,
		PublicURL: s.PublicURL(key),
	}, nil
}

func (s *ObjectStore) UploadFile(ctx context.Context, key, filePath string) (UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat %s: %w", filePath, err)
	}
	return s.Upload(ctx, f, info.Size(), key, guessContentType(filePath))
}

// Delete removes key. A missing object is logged, not returned.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		s.log.Warn().Str("key", key).Msg("delete: object does not exist")
		return nil
	}
	s.reporter.CaptureException(err, map[string]string{"component": "storage", "op": "delete"})
	return fmt.Errorf("remove object %s: %w", key, err)
}

// Download writes key into dir using the last path segment as the file name.
// A missing object is logged and reported as an empty path with a nil error.
func (s *ObjectStore) Download(ctx context.Context, key, dir string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	target := filepath.Join(dir, path.Base(key))

	err := s.client.FGetObject(ctx, s.cfg.Bucket, key, target, minio.GetObjectOptions{})
	if err == nil {
		return target, nil
	}
	if isNotFound(err) {
		s.log.Error().Err(err).Str("key", key).Msg("download: object does not exist")
		return "", nil
	}
	s.reporter.CaptureException(err, map[string]string{"component": "storage", "op": "download"})
	return "", fmt.Errorf("get object %s: %w", key, err)
}

// DownloadZip fetches keys one after another and packs them into dir/zipName.
// Missing objects are skipped. The downloaded files are removed afterwards.
func (s *ObjectStore) DownloadZip(ctx context.Context, keys []string, zipName, dir string) (string, error) {
	zipName = ZipName(zipName)

	var files []string
	defer func() {
		for _, f := range files {
			_ = os.Remove(f)
		}
	}()

	for _, key := range keys {
		local, err := s.Download(ctx, key, dir)
		if err != nil {
			return "", err
		}
		if local != "" {
			files = append(files, local)
		}
	}

	zipPath := filepath.Join(dir, zipName)
	if err := writeZip(zipPath, files); err != nil {
		return "", err
	}
	return zipPath, nil
}

func (s *ObjectStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if expiry <= 0 {
		expiry = s.cfg.PresignExpiry
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, expiry, nil)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("presign get failed")
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *ObjectStore) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
	}

	base := strings.TrimSuffix(s.cfg.Endpoint, "/")
	if strings.HasSuffix(base, "amazonaws.com") {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key)
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, s.cfg.Bucket, key)
}

// ZipName appends the .zip extension when it is missing.
func ZipName(name string) string {
	if strings.HasSuffix(name, zipExt) {
		return name
	}
	return name + zipExt
}

func writeZip(zipPath string, files []string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addZipEntry(zw, file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, file string) error {
	in, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(file))
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", file, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("zip copy %s: %w", file, err)
	}
	return nil
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
