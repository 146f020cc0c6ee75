package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultS3Region  = "us-east-1"
	defaultURLExpiry = time.Hour
)

// S3Config points the report store at an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLExpiry bounds presigned report links.
	URLExpiry time.Duration
}

func (c S3Config) normalized() (S3Config, error) {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		missing = append(missing, "access key and secret key")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("report store: s3 %s required", strings.Join(missing, ", "))
	}
	if c.Region == "" {
		c.Region = defaultS3Region
	}
	if c.URLExpiry <= 0 {
		c.URLExpiry = defaultURLExpiry
	}
	return c, nil
}

// S3Store keeps session reports as objects under "<session>/<name>" and
// hands out presigned links so browsers download them straight from the
// bucket.
type S3Store struct {
	cfg    S3Config
	client *minio.Client

	bucketOnce sync.Once
	bucketErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("report store: s3 client: %w", err)
	}
	return &S3Store{cfg: cfg, client: client}, nil
}

// prepare creates the report bucket on first write or read.
func (s *S3Store) prepare(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		ok, err := s.client.BucketExists(ctx, s.cfg.Bucket)
		switch {
		case err != nil:
			s.bucketErr = err
		case !ok:
			s.bucketErr = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
		}
	})
	if s.bucketErr != nil {
		return fmt.Errorf("report store: bucket %s: %w", s.cfg.Bucket, s.bucketErr)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, sessionID, name string, content []byte, contentType string) error {
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return err
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	opts := minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("inline; filename=%q", name),
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, objectKey(sessionID, name), bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		return fmt.Errorf("report store: put %s/%s: %w", sessionID, name, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, objectKey(sessionID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, missingAsNotFound(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, missingAsNotFound(err)
	}
	return data, nil
}

// List returns the report names stored for one session, sorted.
func (s *S3Store) List(ctx context.Context, sessionID string) ([]string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	prefix := objectKey(sessionID, "")
	var names []string
	for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := strings.TrimPrefix(obj.Key, prefix); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetURL presigns a download link valid for URLExpiry. It does not check
// that the object exists.
func (s *S3Store) GetURL(ctx context.Context, sessionID, name string) (string, error) {
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, objectKey(sessionID, name), s.cfg.URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("report store: presign %s/%s: %w", sessionID, name, err)
	}
	return u.String(), nil
}

func missingAsNotFound(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Join(ErrNotFound, err)
	}
	return err
}
