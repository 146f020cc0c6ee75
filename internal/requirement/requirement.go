package requirement

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups checklist items in the UI.
type Category string

const (
	CategoryCore      Category = "core"
	CategoryTechnical Category = "technical"
	CategoryBonus     Category = "bonus"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCore, CategoryTechnical, CategoryBonus:
		return true
	}
	return false
}

var ErrUnknownRequirement = errors.New("requirement: unknown id")

// Item is one learning objective of the project checklist.
// Completed is the only field that changes after startup.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	Completed   bool     `json:"completed" yaml:"-"`
}

// Catalog is an ordered set of items keyed by a unique, stable id.
type Catalog struct {
	items []Item
	index map[string]int
}

func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		it.Title = strings.TrimSpace(it.Title)
		if it.ID == "" {
			return nil, fmt.Errorf("requirement %d: id is required", i)
		}
		if it.Title == "" {
			return nil, fmt.Errorf("requirement %s: title is required", it.ID)
		}
		if it.Category == "" {
			it.Category = CategoryCore
		}
		if !it.Category.Valid() {
			return nil, fmt.Errorf("requirement %s: unknown category %q", it.ID, it.Category)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("requirement %s: duplicate id", it.ID)
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items returns a copy of the items in catalog order.
func (c *Catalog) Items() []Item {
	if c == nil {
		return nil
	}
	return append([]Item(nil), c.items...)
}

func (c *Catalog) Get(id string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Toggle flips the completion flag of id and returns the new value.
func (c *Catalog) Toggle(id string) (bool, error) {
	if c == nil {
		return false, ErrUnknownRequirement
	}
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRequirement, id)
	}
	c.items[i].Completed = !c.items[i].Completed
	return c.items[i].Completed, nil
}

// Clone returns an independent copy, including completion flags.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	out := &Catalog{
		items: append([]Item(nil), c.items...),
		index: make(map[string]int, len(c.index)),
	}
	for k, v := range c.index {
		out.index[k] = v
	}
	return out
}

// Restore copies completion flags from items whose id exists in the catalog.
func (c *Catalog) Restore(items []Item) {
	if c == nil {
		return
	}
	for _, it := range items {
		if i, ok := c.index[it.ID]; ok {
			c.items[i].Completed = it.Completed
		}
	}
}

// Progress summarizes how much of the checklist is done.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

func (c *Catalog) Progress() Progress {
	p := Progress{Total: c.Len()}
	if p.Total == 0 {
		return p
	}
	for _, it := range c.items {
		if it.Completed {
			p.Completed++
		}
	}
	p.Percent = (p.Completed*100 + p.Total/2) / p.Total
	return p
}

// Listing renders "- id: title" lines, one per item.
func Listing(items []Item) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", it.ID, it.Title)
	}
	return b.String()
}
