package requirement

import (
	"fmt"
	"strings"
)

// Evidence is the part of an analysis result that decides completion.
type Evidence struct {
	CompletedIDs []string
	Concepts     []string
}

// Matcher decides whether a single item is satisfied by the evidence.
type Matcher interface {
	Name() string
	Match(item Item, ev Evidence) bool
}

// ExactID marks an item complete when its id is listed verbatim.
type ExactID struct{}

func (ExactID) Name() string { return PolicyExact }

func (ExactID) Match(item Item, ev Evidence) bool {
	for _, id := range ev.CompletedIDs {
		if id == item.ID {
			return true
		}
	}
	return false
}

// TitleToken marks an item complete when any reported concept contains the
// first word of its title, ignoring case.
type TitleToken struct{}

func (TitleToken) Name() string { return PolicyHeuristic }

func (TitleToken) Match(item Item, ev Evidence) bool {
	fields := strings.Fields(item.Title)
	if len(fields) == 0 {
		return false
	}
	token := strings.ToLower(fields[0])
	for _, c := range ev.Concepts {
		if strings.Contains(strings.ToLower(c), token) {
			return true
		}
	}
	return false
}

const (
	PolicyExact     = "exact"
	PolicyHeuristic = "heuristic"
)

func MatcherFor(policy string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyExact:
		return ExactID{}, nil
	case PolicyHeuristic, "title", "token":
		return TitleToken{}, nil
	}
	return nil, fmt.Errorf("requirement: unknown match policy %q", policy)
}

// Apply recomputes every completion flag from ev. With monotonic set, items
// that are already complete stay complete. Ids that are not in the catalog
// are ignored. It returns the ids whose flag changed.
func (c *Catalog) Apply(ev Evidence, m Matcher, monotonic bool) []string {
	if c == nil || m == nil {
		return nil
	}
	var changed []string
	for i := range c.items {
		it := &c.items[i]
		next := m.Match(*it, ev)
		if monotonic && it.Completed {
			next = true
		}
		if next != it.Completed {
			it.Completed = next
			changed = append(changed, it.ID)
		}
	}
	return changed
}
