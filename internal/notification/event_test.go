package notification

import (
	"strings"
	"testing"
	"time"
)

func TestClassifyFixedEvents(t *testing.T) {
	c := NewClassifier()
	for _, name := range FixedEvents() {
		if got := c.Classify(name); got != CategoryFixed {
			t.Errorf("Classify(%q) = %v, want fixed", name, got)
		}
	}
}

func TestClassifyPrefixEvents(t *testing.T) {
	c := NewClassifier()
	for _, prefix := range PrefixEvents() {
		for _, suffix := range []string{"1", "1007", "abc-def"} {
			name := prefix + "-" + suffix
			if got := c.Classify(name); got != CategoryPrefix {
				t.Errorf("Classify(%q) = %v, want prefix", name, got)
			}
		}
	}
}

func TestClassifyScenarios(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		name string
		want Category
	}{
		{"import-order-assigned", CategoryFixed},
		{"import-order-ready-to-store-1007", CategoryPrefix},
		{"some-future-event-xyz", CategoryUnknown},
		// A bare prefix without an entity id is not a prefix match.
		{"import-order-ready-to-store", CategoryUnknown},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// Unknown events must still be normalized and surfaced. The backend can
// ship a new event name before this client learns it; dropping it would
// hide real activity. A typo'd backend name also surfaces as a visible
// event, which is the documented trade-off of failing open.
func TestNormalizeUnknownStillProducesEvent(t *testing.T) {
	n := NewNormalizer(NewClassifier(), nil)
	ev := n.Normalize("some-future-event-xyz", map[string]any{"id": "1"})
	if ev.Type != "some-future-event-xyz" {
		t.Errorf("Type = %q, want original name", ev.Type)
	}
	if ev.Category != CategoryUnknown {
		t.Errorf("Category = %v, want unknown", ev.Category)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestPrefixesMutuallyNonOverlapping(t *testing.T) {
	prefixes := PrefixEvents()
	for _, a := range prefixes {
		for _, b := range prefixes {
			if a == b {
				continue
			}
			if strings.HasPrefix(a+"-x", b+"-") {
				t.Errorf("prefix %q shadows %q", b, a)
			}
		}
	}
}

func TestNormalizeTimestampMonotonic(t *testing.T) {
	times := []time.Time{
		time.Unix(100, 0),
		time.Unix(200, 0),
		time.Unix(150, 0), // clock stepped backwards
		time.Unix(300, 0),
	}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	n := NewNormalizer(NewClassifier(), clock)
	var last time.Time
	for range times {
		ev := n.Normalize("import-order-created", nil)
		if ev.Timestamp.Before(last) {
			t.Fatalf("timestamp went backwards: %v after %v", ev.Timestamp, last)
		}
		last = ev.Timestamp
	}
}

func TestEntityID(t *testing.T) {
	n := NewNormalizer(NewClassifier(), nil)

	ev := n.Normalize("import-order-ready-to-store-1007", nil)
	if got := ev.EntityID(); got != "1007" {
		t.Errorf("EntityID() = %q, want %q", got, "1007")
	}

	ev = n.Normalize("import-order-assigned", nil)
	if got := ev.EntityID(); got != "" {
		t.Errorf("EntityID() on fixed event = %q, want empty", got)
	}
}

func TestIsSystem(t *testing.T) {
	if !IsSystem("system:connection_established") {
		t.Error("system:connection_established should be a system event")
	}
	if IsSystem("import-order-created") {
		t.Error("import-order-created should not be a system event")
	}
}
