package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec() *Codec {
	return NewCodec("access-secret-for-tests", "refresh-secret-for-tests")
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	c := newTestCodec()

	in := Claims{
		Email:            "alice@example.com",
		Role:             "user",
		RegisterProvider: "local",
		Jit:              "jit-1",
	}

	raw, err := c.Issue(in, Access, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := c.Verify(raw, Access)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Email != in.Email || got.Role != in.Role || got.RegisterProvider != in.RegisterProvider || got.Jit != in.Jit {
		t.Fatalf("claims mismatch: got %+v want %+v", got, in)
	}
	if got.ExpiresAt == nil || got.IssuedAt == nil {
		t.Fatalf("expected issued-at and expires-at to be set")
	}
	if d := got.ExpiresAt.Sub(got.IssuedAt.Time); d != time.Minute {
		t.Fatalf("expiry window = %v, want %v", d, time.Minute)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	c := newTestCodec()

	raw, err := c.Issue(Claims{Email: "alice@example.com"}, Access, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = c.Verify(raw, Access)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify err = %v, want ErrExpired", err)
	}
}

func TestVerifyWrongClass(t *testing.T) {
	c := newTestCodec()

	access, err := c.Issue(Claims{Email: "alice@example.com"}, Access, time.Minute)
	if err != nil {
		t.Fatalf("Issue access: %v", err)
	}
	refresh, err := c.Issue(Claims{Email: "alice@example.com"}, Refresh, time.Minute)
	if err != nil {
		t.Fatalf("Issue refresh: %v", err)
	}

	if _, err := c.Verify(access, Refresh); !errors.Is(err, ErrInvalid) {
		t.Fatalf("access verified against refresh key: err = %v, want ErrInvalid", err)
	}
	if _, err := c.Verify(refresh, Access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("refresh verified against access key: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	c := newTestCodec()

	raw, err := c.Issue(Claims{Email: "alice@example.com", Role: "user"}, Access, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}
	// Flip a character in the payload; the signature no longer matches.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := c.Verify(tampered, Access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("tampered token verified: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	c := newTestCodec()
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := c.Verify(raw, Access); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Verify(%q) err = %v, want ErrInvalid", raw, err)
		}
	}
}

func TestVerifyDifferentCodecSecret(t *testing.T) {
	c := newTestCodec()
	other := NewCodec("another-access-secret", "another-refresh-secret")

	raw, err := other.Issue(Claims{Email: "alice@example.com"}, Access, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.Verify(raw, Access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("foreign token verified: err = %v, want ErrInvalid", err)
	}
}
