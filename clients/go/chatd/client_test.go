package chatd

import "testing"

func TestDirectRoomKeySymmetric(t *testing.T) {
	a := NewClient("", "alice")
	b := NewClient("", "bob")

	keyFromA := a.DirectRoomKey("bob")
	keyFromB := b.DirectRoomKey("alice")

	if keyFromA != keyFromB {
		t.Fatalf("keys differ: %q vs %q", keyFromA, keyFromB)
	}
	if keyFromA != "dm:alice:bob" {
		t.Fatalf("unexpected key %q", keyFromA)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("http://example.com/", "alice")
	if c.BaseURL != "http://example.com" {
		t.Errorf("trailing slash not stripped: %q", c.BaseURL)
	}

	c = NewClient("", "alice")
	if c.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected default base URL %q", c.BaseURL)
	}
}
