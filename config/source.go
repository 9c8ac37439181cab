// Package config resolves a scaling policy configuration document from a
// filesystem path, an s3:// URI, or an http(s):// URL, and decodes it into
// the set of per-stream policies the controller runs.
package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// sourceTimeout bounds connect+read for remote config fetches.
const sourceTimeout = time.Second

// S3API is the subset of *s3.Client the S3 source needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source fetches raw configuration bytes from one location scheme.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Resolve picks the Source implementation for ref's scheme (s3, http(s), or
// a bare/"file://" filesystem path) and fetches it.
func Resolve(ctx context.Context, ref string, s3Client S3API) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("config: invalid source reference %q: %w", ref, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		return (&s3Source{api: s3Client}).Fetch(ctx, ref)
	case "http", "https":
		return (&httpSource{}).Fetch(ctx, ref)
	case "", "file":
		return (&fileSource{}).Fetch(ctx, ref)
	default:
		return nil, fmt.Errorf("config: unsupported source scheme %q", u.Scheme)
	}
}

type fileSource struct{}

func (fileSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	path := strings.TrimPrefix(ref, "file://")
	return os.ReadFile(path)
}

type httpSource struct{}

func (httpSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	client := &http.Client{Timeout: sourceTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: fetching %s: status %d", ref, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type s3Source struct {
	api S3API
}

func (s *s3Source) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	ctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("config: fetching s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
