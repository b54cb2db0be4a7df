package utils

import "testing"

func TestHashKey(t *testing.T) {
	a := HashKey("recipe-1")
	if len(a) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(a))
	}
	if a != HashKey("recipe-1") {
		t.Error("hash is not stable")
	}
	if a == HashKey("recipe-2") {
		t.Error("different ids share a hash")
	}
}
