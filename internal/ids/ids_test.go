package ids

import (
	"testing"
	"time"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestNewAtIsLowercase(t *testing.T) {
	id := NewAt(time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC))
	if len(id) != 26 {
		t.Fatalf("unexpected id length %d", len(id))
	}
	for _, r := range id {
		if r >= 'A' && r <= 'Z' {
			t.Fatalf("id %q contains upper case", id)
		}
	}
}
