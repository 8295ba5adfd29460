package room

import (
	"errors"
	"testing"

	"github.com/campuslink/chatd/internal/models"
)

func TestDirectKeyOrderIndependent(t *testing.T) {
	k1, err := DirectKey("alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DirectKey("bob", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("expected same key for both orders, got %q and %q", k1, k2)
	}
	if k1 != "dm:alice:bob" {
		t.Fatalf("unexpected canonical key %q", k1)
	}
}

func TestDirectKeyRejectsMalformedInput(t *testing.T) {
	var verr *models.ValidationError

	if _, err := DirectKey("", "bob"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing participant, got %v", err)
	}
	if _, err := DirectKey("alice", "alice"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for identical participants, got %v", err)
	}
	if _, err := DirectKey("a:b", "c"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for ':' in id, got %v", err)
	}
}

func TestDirectParticipantsRoundTrip(t *testing.T) {
	key, err := DirectKey("u2", "u1")
	if err != nil {
		t.Fatal(err)
	}

	a, b, ok := DirectParticipants(key)
	if !ok {
		t.Fatal("expected participants from a valid DM key")
	}
	if a != "u1" || b != "u2" {
		t.Fatalf("expected u1/u2, got %s/%s", a, b)
	}
}

func TestIsDirect(t *testing.T) {
	if !IsDirect("dm:a:b") {
		t.Fatal("dm key should be direct")
	}
	if IsDirect("7f1c2a4e-0000-0000-0000-000000000000") {
		t.Fatal("group uuid should not be direct")
	}
	if _, _, ok := DirectParticipants("dm:onlyone"); ok {
		t.Fatal("truncated key should not parse")
	}
}
