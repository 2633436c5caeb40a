package deck

import (
	"slices"
	"sync"

	"kartubicara/internal/types"
)

// Collection is the in-memory question list shared by the game screen and
// the management view. It is safe for concurrent use.
type Collection struct {
	mu    sync.RWMutex
	items []types.Question
}

func NewCollection(items ...types.Question) *Collection {
	return &Collection{items: slices.Clone(items)}
}

// Replace swaps the whole collection for a new batch.
func (c *Collection) Replace(items []types.Question) {
	c.mu.Lock()
	c.items = slices.Clone(items)
	c.mu.Unlock()
}

func (c *Collection) Append(items ...types.Question) {
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.mu.Unlock()
}

// Prepend puts q in front of every loaded question.
func (c *Collection) Prepend(q types.Question) {
	c.mu.Lock()
	c.items = slices.Insert(c.items, 0, q)
	c.mu.Unlock()
}

func (c *Collection) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// At returns the question at index i.
func (c *Collection) At(i int) (types.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return types.Question{}, false
	}
	return c.items[i], true
}

// LastID is the pagination cursor: the id of the last held question, or nil
// when the collection is empty.
func (c *Collection) LastID() *int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return nil
	}
	id := c.items[len(c.items)-1].ID
	return &id
}

// From returns a copy of the questions starting at index i.
func (c *Collection) From(i int) []types.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(c.items) {
		return nil
	}
	return slices.Clone(c.items[i:])
}

func (c *Collection) All() []types.Question {
	return c.From(0)
}
