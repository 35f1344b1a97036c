package proofs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/psicoliz/booking/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used by Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Image is an uploaded payment proof.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Store keeps proof images in S3. If bucket is empty, Put is a no-op and
// returns an empty key.
type Store struct {
	bucket    string
	s3Client  S3API
	presigner Presigner
	urlTTL    time.Duration
	logger    *logging.Logger
}

func NewStore(s3Client S3API, presigner Presigner, bucket string, urlTTL time.Duration, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Store{bucket: bucket, s3Client: s3Client, presigner: presigner, urlTTL: urlTTL, logger: logger}
}

// Enabled returns true if proof storage is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Put stores img under proofs/{booking}/{random}{ext} and returns the key.
func (s *Store) Put(ctx context.Context, bookingID uuid.UUID, img Image) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	key := fmt.Sprintf("proofs/%s/%s%s", bookingID, uuid.NewString(), Extension(img.ContentType, img.Filename))
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(img.Data),
		ContentType:        aws.String(img.ContentType),
		ContentDisposition: aws.String(fmt.Sprintf("inline; filename=%q", safeFilename(img.Filename))),
		Metadata:           map[string]string{"booking-id": bookingID.String()},
	})
	if err != nil {
		return "", fmt.Errorf("proofs: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored payment proof", "booking_id", bookingID, "s3_key", key, "bytes", len(img.Data))
	return key, nil
}

// CanPresign reports whether URL can hand out presigned links.
func (s *Store) CanPresign() bool {
	return s.Enabled() && s.presigner != nil
}

// Get reads a stored proof back.
func (s *Store) Get(ctx context.Context, key string) (*Image, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("proofs: storage not configured")
	}
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("proofs: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("proofs: read %s: %w", key, err)
	}
	return &Image{Filename: key[strings.LastIndex(key, "/")+1:], ContentType: aws.ToString(out.ContentType), Data: data}, nil
}

// URL returns a short-lived presigned GET URL for key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() || s.presigner == nil {
		return "", fmt.Errorf("proofs: storage not configured")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("proofs: presign %s: %w", key, err)
	}
	return req.URL, nil
}

func safeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "proof"
	}
	return name
}
