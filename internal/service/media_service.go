package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/poil524/final-project-sub000/internal/config"
)

// Media errors.
var (
	ErrMediaSignature = errors.New("media URL signature mismatch")
	ErrMediaExpired   = errors.New("media URL expired")
	ErrMediaKey       = errors.New("invalid media key")
)

// MediaService is the media-storage boundary. The engine stores only
// opaque keys on sections and speaking responses; this service turns a
// key into a time-limited HMAC-signed URL and verifies signatures when
// the object is fetched. Binary payloads never pass through the engine's
// data model.
type MediaService struct {
	cfg *config.Config
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config) *MediaService {
	return &MediaService{cfg: cfg}
}

// SignedURL returns a retrievable URL for a stored media key, valid
// until the configured TTL elapses.
func (s *MediaService) SignedURL(key string) (string, error) {
	if !validKey(key) {
		return "", ErrMediaKey
	}
	exp := time.Now().Add(s.cfg.MediaURLTTL).Unix()
	sig := s.sign(key, exp)
	return fmt.Sprintf("/media/%s?exp=%d&sig=%s", key, exp, sig), nil
}

// Verify checks a signature produced by SignedURL.
func (s *MediaService) Verify(key string, exp int64, sig string) error {
	if !validKey(key) {
		return ErrMediaKey
	}
	expected := s.sign(key, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrMediaSignature
	}
	if time.Now().Unix() > exp {
		return ErrMediaExpired
	}
	return nil
}

// ObjectPath resolves a verified key to its path in the local object
// directory.
func (s *MediaService) ObjectPath(key string) string {
	return filepath.Join(s.cfg.MediaDir, filepath.Clean("/"+key))
}

func (s *MediaService) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.MediaSecret))
	mac.Write([]byte(key))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// validKey rejects traversal attempts and empty keys.
func validKey(key string) bool {
	return key != "" && !strings.Contains(key, "..") && !strings.HasPrefix(key, "/")
}
