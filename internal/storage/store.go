// Package storage implements the durable blob store for uploaded files and
// issues time-limited signed retrieval URLs for them.
package storage

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrInvalidPath indicates a blob path outside the store root.
	ErrInvalidPath = errors.New("storage: invalid blob path")
	// ErrBadSignature indicates a forged or expired retrieval URL.
	ErrBadSignature = errors.New("storage: signature invalid or expired")
)

// Blob describes a stored object.
type Blob struct {
	Path     string
	Size     int64
	Checksum string
}

// Store persists blobs on the local filesystem under a single root directory
// and signs retrieval URLs with a keyed BLAKE2b MAC.
type Store struct {
	root    string
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// Config groups Store construction parameters.
type Config struct {
	Root    string
	Secret  string
	TTL     time.Duration
	BaseURL string
}

// New creates the store, ensuring the root directory exists.
func New(cfg Config) (*Store, error) {
	if cfg.Secret == "" {
		return nil, errors.New("storage: url secret required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Store{
		root:    cfg.Root,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		now:     time.Now,
	}, nil
}

// WithNow overrides the clock, used by tests.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Put streams r into the store under key and returns the stored blob
// descriptor. The checksum is a BLAKE2b-256 digest of the content.
func (s *Store) Put(key string, r io.Reader) (Blob, error) {
	rel, err := s.cleanKey(key)
	if err != nil {
		return Blob{}, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Blob{}, fmt.Errorf("storage: mkdir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return Blob{}, fmt.Errorf("storage: create blob: %w", err)
	}
	defer f.Close()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return Blob{}, err
	}
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		_ = os.Remove(full)
		return Blob{}, fmt.Errorf("storage: write blob: %w", err)
	}

	return Blob{
		Path:     rel,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns a reader over the blob at rel.
func (s *Store) Open(rel string) (io.ReadCloser, error) {
	rel, err := s.cleanKey(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the blob at rel. Missing blobs are not an error so document
// deletion stays idempotent.
func (s *Store) Delete(rel string) error {
	rel, err := s.cleanKey(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete blob: %w", err)
	}
	return nil
}

// SignedURL returns a time-limited retrieval URL for the blob at rel.
func (s *Store) SignedURL(rel string) (string, error) {
	rel, err := s.cleanKey(rel)
	if err != nil {
		return "", err
	}
	exp := s.now().Add(s.ttl).Unix()
	sig := s.sign(rel, exp)
	return fmt.Sprintf("%s/files/%s?exp=%d&sig=%s", s.baseURL, rel, exp, sig), nil
}

// Verify checks the signature and expiry carried by a retrieval URL.
func (s *Store) Verify(rel string, exp int64, sig string) error {
	rel, err := s.cleanKey(rel)
	if err != nil {
		return err
	}
	if exp < s.now().Unix() {
		return ErrBadSignature
	}
	if subtle.ConstantTimeCompare([]byte(s.sign(rel, exp)), []byte(sig)) == 1 {
		return nil
	}
	return ErrBadSignature
}

// VerifyQuery is a convenience wrapper extracting exp/sig from query values.
func (s *Store) VerifyQuery(rel string, q url.Values) error {
	exp, err := strconv.ParseInt(q.Get("exp"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	return s.Verify(rel, exp, q.Get("sig"))
}

func (s *Store) sign(rel string, exp int64) string {
	mac, _ := blake2b.New256(s.secret)
	mac.Write([]byte(rel))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Store) cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
