package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: want 7 got %d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 42 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("Int: want 42 got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("Bool: expected default true")
	}
}

func TestMillis(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_MS", "250")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Millis: got %v", got)
	}
}
