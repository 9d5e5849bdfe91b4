package notification

import (
	"strings"
	"sync"
	"time"
)

// SystemPrefix marks broker-internal lifecycle events. They are filtered
// out before classification and never reach consumers.
const SystemPrefix = "system:"

// Category is the result of classifying an inbound event name.
type Category int

const (
	// CategoryFixed means the name matched the fixed table exactly.
	CategoryFixed Category = iota

	// CategoryPrefix means the name matched "<prefix>-<entityID>" for a
	// known prefix.
	CategoryPrefix

	// CategoryUnknown means the name matched neither table. Unknown
	// events are still normalized and published: new backend events stay
	// visible before the client learns their name.
	CategoryUnknown
)

func (c Category) String() string {
	switch c {
	case CategoryFixed:
		return "fixed"
	case CategoryPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

// Event is a normalized notification as seen by consumers. Type keeps the
// original wire name so consumers can key display logic off it; Timestamp
// is capture time at this client, not broker time.
type Event struct {
	Type      string         `json:"type"`
	Category  Category       `json:"category"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// EntityID returns the trailing entity id of a prefix event, or "" for
// fixed and unknown events.
func (e Event) EntityID() string {
	if e.Category != CategoryPrefix {
		return ""
	}
	for _, p := range PrefixEvents() {
		if strings.HasPrefix(e.Type, p+"-") {
			return e.Type[len(p)+1:]
		}
	}
	return ""
}

// Classifier resolves event names against the fixed and prefix tables.
// The tables are compiled once at construction instead of rescanned per
// event.
type Classifier struct {
	fixed    map[string]struct{}
	prefixes []string // each stored with the trailing "-" already appended
}

// NewClassifier compiles the default event tables.
func NewClassifier() *Classifier {
	return NewClassifierFor(FixedEvents(), PrefixEvents())
}

// NewClassifierFor compiles explicit tables; used by tests and by tools
// that replay historical contracts.
func NewClassifierFor(fixed, prefixes []string) *Classifier {
	c := &Classifier{
		fixed:    make(map[string]struct{}, len(fixed)),
		prefixes: make([]string, 0, len(prefixes)),
	}
	for _, name := range fixed {
		c.fixed[name] = struct{}{}
	}
	for _, p := range prefixes {
		c.prefixes = append(c.prefixes, p+"-")
	}
	return c
}

// IsSystem reports whether name is a broker-internal lifecycle event.
func IsSystem(name string) bool {
	return strings.HasPrefix(name, SystemPrefix)
}

// Classify tests name against the fixed table first, then the prefix
// table. First prefix match wins; the tables are non-overlapping by
// convention so order among prefixes does not matter.
func (c *Classifier) Classify(name string) Category {
	if _, ok := c.fixed[name]; ok {
		return CategoryFixed
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(name, p) {
			return CategoryPrefix
		}
	}
	return CategoryUnknown
}

// Normalizer turns raw broker events into Events with a per-session
// monotonically non-decreasing timestamp.
type Normalizer struct {
	classifier *Classifier
	now        func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewNormalizer builds a normalizer over the given classifier. A nil now
// func defaults to time.Now.
func NewNormalizer(classifier *Classifier, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{classifier: classifier, now: now}
}

// Normalize produces the Event for a raw broker event. It never rejects:
// unknown names come back tagged CategoryUnknown rather than being
// dropped. A local clock step backwards is clamped to the previous
// timestamp so consumers can rely on non-decreasing capture times.
func (n *Normalizer) Normalize(name string, data map[string]any) Event {
	ts := n.now()

	n.mu.Lock()
	if ts.Before(n.last) {
		ts = n.last
	}
	n.last = ts
	n.mu.Unlock()

	return Event{
		Type:      name,
		Category:  n.classifier.Classify(name),
		Data:      data,
		Timestamp: ts,
	}
}
