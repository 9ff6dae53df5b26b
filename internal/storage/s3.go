package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"
)

// S3Store talks to an S3-compatible bucket over plain HTTP with AWS
// signature v2 request signing. No SDK: the store only needs PUT and
// DELETE by key.
type S3Store struct {
	bucket    string
	region    string
	accessKey string
	secretKey string
	client    *http.Client
	proto     string
}

// NewS3Store creates a store for the given bucket. client may be nil,
// in which case a default DNS-caching client is used.
func NewS3Store(bucket, region, accessKey, secretKey string, client *http.Client) *S3Store {
	if client == nil {
		client = NewHTTPClient(5 * time.Minute)
	}
	return &S3Store{
		bucket:    bucket,
		region:    region,
		accessKey: accessKey,
		secretKey: secretKey,
		client:    client,
		proto:     "https",
	}
}

// Host returns the bucket's virtual-hosted endpoint.
func (s *S3Store) Host() string {
	if s.region == "" || s.region == "us-east-1" {
		return s.bucket + ".s3.amazonaws.com"
	}
	return s.bucket + ".s3-" + s.region + ".amazonaws.com"
}

// Put uploads body under key. A non-2xx response is an error.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string, length int64) error {
	req, err := s.newRequest(ctx, http.MethodPut, key, body, contentType)
	if err != nil {
		return err
	}
	req.ContentLength = length

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploading %s: unexpected status %s", key, resp.Status)
	}
	return nil
}

// Delete removes the object at key. Missing objects are not an error;
// the compensation guard may fire after a failed upload.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, key, nil, "")
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting %s: unexpected status %s", key, resp.Status)
	}
	return nil
}

// URL returns the public download location for a key.
func (s *S3Store) URL(key string) string {
	return s.proto + "://" + s.Host() + key
}

func (s *S3Store) newRequest(ctx context.Context, method, key string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL(key), body)
	if err != nil {
		return nil, fmt.Errorf("building %s request for %s: %w", method, key, err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", date)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "AWS "+s.accessKey+":"+s.sign(method, contentType, date, key))
	return req, nil
}

// sign computes the AWS signature v2 for a request:
// base64(hmac-sha1(secret, method\n\ncontent-type\ndate\n/bucket/key)).
func (s *S3Store) sign(method, contentType, date, key string) string {
	toSign := method + "\n\n" + contentType + "\n" + date + "\n/" + s.bucket + key
	mac := hmac.New(sha1.New, []byte(s.secretKey))
	mac.Write([]byte(toSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
