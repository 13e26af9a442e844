package service

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/poil524/final-project-sub000/internal/config"
)

func mediaServiceForTest() *MediaService {
	return NewMediaService(&config.Config{
		MediaDir:    "/var/lib/engine/media",
		MediaSecret: "test-secret",
		MediaURLTTL: time.Hour,
	})
}

func parseSignedURL(t *testing.T, raw string) (key string, exp int64, sig string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse signed URL: %v", err)
	}
	key = strings.TrimPrefix(u.Path, "/media/")
	exp, err = strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("parse exp: %v", err)
	}
	return key, exp, u.Query().Get("sig")
}

func TestSignedURLRoundTrip(t *testing.T) {
	s := mediaServiceForTest()

	raw, err := s.SignedURL("audio/part1.mp3")
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	key, exp, sig := parseSignedURL(t, raw)
	if key != "audio/part1.mp3" {
		t.Errorf("key = %q", key)
	}
	if err := s.Verify(key, exp, sig); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := mediaServiceForTest()
	raw, err := s.SignedURL("audio/part1.mp3")
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	key, exp, sig := parseSignedURL(t, raw)

	if err := s.Verify("audio/part2.mp3", exp, sig); !errors.Is(err, ErrMediaSignature) {
		t.Errorf("swapped key: err = %v, want ErrMediaSignature", err)
	}
	if err := s.Verify(key, exp+60, sig); !errors.Is(err, ErrMediaSignature) {
		t.Errorf("extended expiry: err = %v, want ErrMediaSignature", err)
	}
	if err := s.Verify(key, exp, sig+"00"); !errors.Is(err, ErrMediaSignature) {
		t.Errorf("altered signature: err = %v, want ErrMediaSignature", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := mediaServiceForTest()
	past := time.Now().Add(-time.Minute).Unix()
	sig := s.sign("audio/part1.mp3", past)

	if err := s.Verify("audio/part1.mp3", past, sig); !errors.Is(err, ErrMediaExpired) {
		t.Errorf("err = %v, want ErrMediaExpired", err)
	}
}

func TestInvalidMediaKeys(t *testing.T) {
	s := mediaServiceForTest()
	for _, key := range []string{"", "../etc/passwd", "/absolute", "a/../../b"} {
		if _, err := s.SignedURL(key); !errors.Is(err, ErrMediaKey) {
			t.Errorf("SignedURL(%q): err = %v, want ErrMediaKey", key, err)
		}
	}
}

func TestObjectPathStaysInMediaDir(t *testing.T) {
	s := mediaServiceForTest()
	p := s.ObjectPath("audio/part1.mp3")
	if !strings.HasPrefix(p, "/var/lib/engine/media/") {
		t.Errorf("ObjectPath = %q escapes the media dir", p)
	}
}
