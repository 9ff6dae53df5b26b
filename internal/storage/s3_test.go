package storage

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3Store_Host(t *testing.T) {
	assert.Equal(t, "crates.s3.amazonaws.com",
		NewS3Store("crates", "", "ak", "sk", nil).Host())
	assert.Equal(t, "crates.s3.amazonaws.com",
		NewS3Store("crates", "us-east-1", "ak", "sk", nil).Host())
	assert.Equal(t, "crates.s3-eu-west-1.amazonaws.com",
		NewS3Store("crates", "eu-west-1", "ak", "sk", nil).Host())
}

func TestS3Store_URL(t *testing.T) {
	s := NewS3Store("crates", "", "ak", "sk", nil)
	assert.Equal(t, "https://crates.s3.amazonaws.com/crates/serde/serde-1.0.0.crate",
		s.URL("/crates/serde/serde-1.0.0.crate"))
}

func TestS3Store_Sign(t *testing.T) {
	s := NewS3Store("crates", "", "ak", "secret", nil)
	date := "Tue, 27 Mar 2007 19:36:42 +0000"
	got := s.sign("PUT", "application/x-tar", date, "/crates/serde/serde-1.0.0.crate")

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte("PUT\n\napplication/x-tar\n" + date + "\n/crates/crates/serde/serde-1.0.0.crate"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, got)
}
