package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	oldSecret  = []byte("old-old-old-old-old-old-old-old-")
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{TTL: time.Hour, Secret: testSecret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestSignParseRoundTrip(t *testing.T) {
	m := newHSManager(t)

	value, err := m.Sign("sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sid, err := m.Parse(value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sid != "sid-1" {
		t.Fatalf("expected sid-1, got %q", sid)
	}
}

func TestParseRejectsTamperedValue(t *testing.T) {
	m := newHSManager(t)
	value, err := m.Sign("sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parts := strings.Split(value, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Parse(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidCookie) {
		t.Fatalf("expected ErrInvalidCookie, got %v", err)
	}
	if _, err := m.Parse("not-a-cookie"); !errors.Is(err, ErrInvalidCookie) {
		t.Fatalf("expected ErrInvalidCookie, got %v", err)
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager(Config{TTL: time.Hour, Secret: []byte("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	value, _ := other.Sign("sid-1")
	if _, err := m.Parse(value); err == nil {
		t.Fatal("expected foreign signature to be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newHSManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }
	value, err := m.Sign("sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := m.Parse(value); err == nil {
		t.Fatal("expected expired cookie to be rejected")
	}
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	m := newHSManager(t)
	claims := SessionClaims{SID: "sid-1", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(forged); err == nil {
		t.Fatal("expected unsigned cookie to be rejected")
	}
}

func TestParseRequiresExpiry(t *testing.T) {
	m := newHSManager(t)
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, SessionClaims{SID: "sid-1"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(forged); err == nil {
		t.Fatal("expected cookie without exp to be rejected")
	}
}

func TestKeyRotation(t *testing.T) {
	old, err := NewManager(Config{TTL: time.Hour, Secret: oldSecret, KeyID: "k1"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	value, _ := old.Sign("sid-1")

	rotated, err := NewManager(Config{
		TTL:             time.Hour,
		Secret:          testSecret,
		KeyID:           "k2",
		PreviousSecrets: map[string][]byte{"k1": oldSecret},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if sid, err := rotated.Parse(value); err != nil || sid != "sid-1" {
		t.Fatalf("expected old cookie to verify, got %q %v", sid, err)
	}

	fresh, _ := rotated.Sign("sid-2")
	if _, err := old.Parse(fresh); err == nil {
		t.Fatal("new cookie verified under the retired secret")
	}

	retired, err := NewManager(Config{TTL: time.Hour, Secret: testSecret, KeyID: "k2"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := retired.Parse(value); !errors.Is(err, ErrInvalidCookie) {
		t.Fatalf("expected dropped kid to be rejected, got %v", err)
	}
}

func TestKeyIDMismatchRejected(t *testing.T) {
	unlabelled := newHSManager(t)
	value, _ := unlabelled.Sign("sid-1")

	labelled, err := NewManager(Config{TTL: time.Hour, Secret: testSecret, KeyID: "k1"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := labelled.Parse(value); err == nil {
		t.Fatal("expected cookie without kid to be rejected once a kid is configured")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := map[string]Config{
		"zero ttl":         {TTL: 0, Secret: testSecret},
		"short secret":     {TTL: time.Hour, Secret: []byte("short")},
		"previous, no kid": {TTL: time.Hour, Secret: testSecret, PreviousSecrets: map[string][]byte{"k1": oldSecret}},
		"kid reused":       {TTL: time.Hour, Secret: testSecret, KeyID: "k1", PreviousSecrets: map[string][]byte{"k1": oldSecret}},
		"empty previous":   {TTL: time.Hour, Secret: testSecret, KeyID: "k2", PreviousSecrets: map[string][]byte{" ": oldSecret}},
		"short previous":   {TTL: time.Hour, Secret: testSecret, KeyID: "k2", PreviousSecrets: map[string][]byte{"k1": []byte("short")}},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func FuzzParse(f *testing.F) {
	m, err := NewManager(Config{TTL: time.Hour, Secret: testSecret})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := m.Sign("seed")
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzaWQiOiJ4In0.")

	f.Fuzz(func(t *testing.T, input string) {
		sid, err := m.Parse(input)
		if err == nil && sid == "" {
			t.Fatal("accepted cookie without session id")
		}
	})
}
