package proofs

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxSize is the largest accepted proof image, in bytes.
const MaxSize int64 = 5 << 20

var (
	ErrNotImage = errors.New("proofs: file is not an image")
	ErrTooLarge = errors.New("proofs: file exceeds 5 MB")
	ErrEmpty    = errors.New("proofs: file is empty")
)

// Validate checks a declared content type and size before anything is sent or stored.
func Validate(contentType string, size int64) error {
	if size <= 0 {
		return ErrEmpty
	}
	if size > MaxSize {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, size)
	}
	if !isImage(contentType) {
		return fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	return nil
}

// Sniff validates the declared type and size against the file's leading bytes
// and returns the content type to store.
func Sniff(declared string, size int64, head []byte) (string, error) {
	if err := Validate(declared, size); err != nil {
		return "", err
	}
	detected := http.DetectContentType(head)
	if isImage(detected) {
		return detected, nil
	}
	// The stdlib sniffer does not know HEIF containers.
	if isHEIF(declared) && detected == "application/octet-stream" {
		return mediaType(declared), nil
	}
	return "", fmt.Errorf("%w: content is %s", ErrNotImage, detected)
}

// Extension picks the object key suffix for a proof.
func Extension(contentType, filename string) string {
	switch mediaType(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	}
	return strings.ToLower(filepath.Ext(filename))
}

func isImage(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

func isHEIF(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "image/heic" || mt == "image/heif"
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
