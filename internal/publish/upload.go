package publish

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
)

// Metadata is the JSON block at the head of a publish envelope,
// matching the manifest fields the client submits.
type Metadata struct {
	Name          string              `json:"name"`
	Vers          string              `json:"vers"`
	Deps          []DependencyDecl    `json:"deps"`
	Features      map[string][]string `json:"features"`
	Authors       []string            `json:"authors"`
	Description   *string             `json:"description"`
	Homepage      *string             `json:"homepage"`
	Documentation *string             `json:"documentation"`
	Readme        *string             `json:"readme"`
	Keywords      []string            `json:"keywords"`
	License       *string             `json:"license"`
	LicenseFile   *string             `json:"license_file"`
	Repository    *string             `json:"repository"`
}

// DependencyDecl is one declared dependency in the metadata block.
type DependencyDecl struct {
	Name            string   `json:"name"`
	VersionReq      string   `json:"version_req"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Features        []string `json:"features"`
	Target          *string  `json:"target"`
	Kind            *string  `json:"kind"`
}

// Envelope is a decoded publish request body: the metadata block plus a
// bounded reader over the raw archive bytes and the declared archive
// length.
type Envelope struct {
	Metadata   Metadata
	Tarball    io.Reader
	TarballLen int64
}

// ReadEnvelope decodes a publish body: a 4-byte little-endian length,
// that many bytes of metadata JSON, another 4-byte little-endian
// length, then the raw archive. Both declared lengths are checked
// against maxSize before anything is buffered. The archive itself is
// not read here; Tarball streams it during the artifact upload.
func ReadEnvelope(r io.Reader, maxSize int64) (*Envelope, error) {
	jsonLen, err := readLEU32(r)
	if err != nil {
		return nil, &ValidationError{Problems: []string{"invalid metadata length prefix"}}
	}
	if int64(jsonLen) > maxSize {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("max upload size is: %d", maxSize)}}
	}

	jsonBuf := make([]byte, jsonLen)
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, &ValidationError{Problems: []string{"metadata block shorter than its declared length"}}
	}

	var meta Metadata
	if err := json.Unmarshal(jsonBuf, &meta); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("invalid upload request: %v", err)}}
	}

	tarballLen, err := readLEU32(r)
	if err != nil {
		return nil, &ValidationError{Problems: []string{"invalid archive length prefix"}}
	}
	if int64(tarballLen) > maxSize {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("max upload size is: %d", maxSize)}}
	}

	return &Envelope{
		Metadata:   meta,
		Tarball:    io.LimitReader(r, int64(tarballLen)),
		TarballLen: int64(tarballLen),
	}, nil
}

func readLEU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// hashingReader computes a SHA-256 digest and byte count of everything
// read through it, so the artifact upload hashes the archive in the
// same pass that streams it to the store.
type hashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func newHashingReader(r io.Reader) *hashingReader {
	return &hashingReader{r: r, h: sha256.New()}
}

func (hr *hashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

// Sum returns the lowercase hex digest of the bytes read so far.
func (hr *hashingReader) Sum() string {
	return hex.EncodeToString(hr.h.Sum(nil))
}

// Count returns the number of bytes read so far.
func (hr *hashingReader) Count() int64 {
	return hr.n
}
