package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"time"

	"github.com/rs/zerolog"

	"authhub/api/internal/ids"
	"authhub/api/internal/media/sniffer"
	"authhub/api/internal/media/svg"
)

const (
	maxAvatarBytes = 5 << 20
	avatarPrefix   = "uploads/avatars"
)

// AvatarInput is an uploaded avatar file as received from a multipart form.
type AvatarInput struct {
	File     io.Reader
	Filename string
	Header   textproto.MIMEHeader
}

type AvatarService struct {
	store  ObjectUploader
	expiry time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewAvatarService returns a service that rejects uploads when store is nil.
func NewAvatarService(store ObjectUploader, expiry time.Duration, log zerolog.Logger) *AvatarService {
	return &AvatarService{
		store:  store,
		expiry: expiry,
		log:    log,
		now:    time.Now,
	}
}

// Store validates the image bytes and uploads them, returning the object key.
func (s *AvatarService) Store(ctx context.Context, accountID string, input AvatarInput) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("%w: avatar storage is not configured", ErrUnsupportedFile)
	}
	if input.File == nil {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedFile)
	}

	kind, head, err := sniffer.Read(input.File)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		return "", fmt.Errorf("read head: %w", err)
	}

	declared := sniffer.Declared(input.Header)
	if declared != "" && declared != kind.MIME {
		return "", fmt.Errorf("%w: declared %s, actual %s", ErrUnsupportedFile, declared, kind.MIME)
	}

	rest, err := io.ReadAll(io.LimitReader(input.File, maxAvatarBytes))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	data := append(head, rest...)
	if len(data) > maxAvatarBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedFile, maxAvatarBytes)
	}

	if kind == sniffer.SVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		data = clean
	}

	key := s.objectKey(kind.Ext)
	if _, err := s.store.Upload(ctx, bytes.NewReader(data), int64(len(data)), key, kind.MIME); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	s.log.Debug().
		Str("account_id", accountID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("avatar stored")
	return key, nil
}

// Replace stores a new avatar and removes the previous object, if any.
func (s *AvatarService) Replace(ctx context.Context, accountID string, previous *string, input AvatarInput) (string, error) {
	key, err := s.Store(ctx, accountID, input)
	if err != nil {
		return "", err
	}
	if previous != nil && *previous != "" && *previous != key {
		if err := s.store.Delete(ctx, *previous); err != nil {
			s.log.Warn().Err(err).Str("key", *previous).Msg("remove previous avatar failed")
		}
	}
	return key, nil
}

// URL returns a presigned download link, or "" when no avatar is set or signing fails.
func (s *AvatarService) URL(ctx context.Context, key *string) string {
	if s == nil || s.store == nil || key == nil || *key == "" {
		return ""
	}
	url, err := s.store.PresignedURL(ctx, *key, s.expiry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("presign avatar failed")
		return ""
	}
	return url
}

func (s *AvatarService) objectKey(ext string) string {
	datePrefix := s.now().UTC().Format("2006/01")
	return path.Join(avatarPrefix, datePrefix, fmt.Sprintf("%s.%s", ids.New(), ext))
}
