package session

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	states := []State{Anonymous(), Pending("u-1"), Authenticated("u-2")}
	for _, st := range states {
		in := &Session{
			ID:        "ignored",
			State:     st,
			CSRFToken: "tok",
			CreatedAt: 100,
			ExpiresAt: 200,
		}
		data, err := Encode(in)
		if err != nil {
			t.Fatalf("%s: Encode: %v", st.Kind(), err)
		}
		out, err := Decode(data)
		if err != nil {
			t.Fatalf("%s: Decode: %v", st.Kind(), err)
		}
		if out.State != st || out.CSRFToken != "tok" || out.CreatedAt != 100 || out.ExpiresAt != 200 {
			t.Fatalf("%s: mismatch: %+v", st.Kind(), out)
		}
		if out.ID != "" {
			t.Fatalf("session id must not be encoded, got %q", out.ID)
		}
	}
}

func TestEncodeRejectsInvalidState(t *testing.T) {
	if _, err := Encode(&Session{State: State{kind: KindAuthenticated}}); err == nil {
		t.Fatal("expected authenticated state without user to be rejected")
	}
	if _, err := Encode(&Session{State: State{kind: KindAnonymous, userID: "u"}}); err == nil {
		t.Fatal("expected anonymous state with user to be rejected")
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	valid, err := Encode(&Session{State: Pending("u-1"), CreatedAt: 1, ExpiresAt: 2})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	badVersion := append([]byte{}, valid...)
	badVersion[0] = 9

	badKind := append([]byte{}, valid...)
	badKind[1] = 7

	cases := map[string][]byte{
		"empty":     nil,
		"version":   badVersion,
		"kind":      badKind,
		"truncated": valid[:len(valid)-3],
		"trailing":  append(append([]byte{}, valid...), 0),
	}
	for name, data := range cases {
		if _, err := Decode(data); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func FuzzDecode(f *testing.F) {
	if seed, err := Encode(&Session{State: Authenticated("u"), CSRFToken: "c", CreatedAt: 1, ExpiresAt: 2}); err == nil {
		f.Add(seed)
	}
	f.Add([]byte{})
	f.Add([]byte{1, 2, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if !s.State.valid() {
			t.Fatalf("decoded invalid state %+v", s.State)
		}
	})
}
