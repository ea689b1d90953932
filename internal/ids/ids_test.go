package ids

import (
	"sort"
	"testing"
	"time"
)

func TestNewIsValid(t *testing.T) {
	id := New()
	if !Valid(id) {
		t.Fatalf("generated id %q did not validate", id)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewAtIsSortableByTime(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := NewAt(base)
	later := NewAt(base.Add(time.Hour))

	ordered := []string{later, earlier}
	sort.Strings(ordered)

	if ordered[0] != earlier {
		t.Fatalf("expected %s to sort before %s, got order %v", earlier, later, ordered)
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	cases := []string{"", "not-a-ulid", "12345", "uuuuuuuuuuuuuuuuuuuuuuuuuu"}
	for _, c := range cases {
		if Valid(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}
