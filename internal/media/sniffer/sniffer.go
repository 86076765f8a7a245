// Package sniffer identifies avatar images from their leading bytes.
package sniffer

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/textproto"
	"strings"
)

// HeadSize is the number of leading bytes Sniff needs.
const HeadSize = 512

var ErrUnknownType = errors.New("unsupported image type")

type Kind struct {
	Ext  string
	MIME string
}

var (
	JPEG = Kind{Ext: "jpg", MIME: "image/jpeg"}
	PNG  = Kind{Ext: "png", MIME: "image/png"}
	GIF  = Kind{Ext: "gif", MIME: "image/gif"}
	WEBP = Kind{Ext: "webp", MIME: "image/webp"}
	SVG  = Kind{Ext: "svg", MIME: "image/svg+xml"}
)

// Read consumes up to HeadSize bytes of r and sniffs them. The bytes read are returned so the
// caller can stitch them back in front of the remaining stream.
func Read(r io.Reader) (Kind, []byte, error) {
	head := make([]byte, HeadSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Kind{}, nil, err
	}
	head = head[:n]

	kind, err := Sniff(head)
	return kind, head, err
}

func Sniff(head []byte) (Kind, error) {
	switch {
	case len(head) == 0:
		return Kind{}, ErrUnknownType
	case len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff:
		return JPEG, nil
	case bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return PNG, nil
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return GIF, nil
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return WEBP, nil
	case isSVG(head):
		return SVG, nil
	}
	return Kind{}, ErrUnknownType
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}

// Declared returns the media type from a multipart part header, without parameters.
// Generic binary types count as undeclared.
func Declared(header textproto.MIMEHeader) string {
	value := header.Get("Content-Type")
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	if mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}
