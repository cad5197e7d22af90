package paging

// Collection is an index-aligned sequence of items where some slots may not
// have been fetched yet. Slot i corresponds to record i of the remote listing.
// Unfetched slots are tracked in a validity bitmap instead of holding
// sentinel values, so a forgotten filter can never render one.
type Collection[T any] struct {
	items    []T
	valid    []bool
	identity func(T) string
	count    func(T) string
}

// NewCollection returns an empty collection. identity keys de-duplication;
// count extracts the remote total carried on each item and may be nil.
func NewCollection[T any](identity func(T) string, count func(T) string) *Collection[T] {
	return &Collection[T]{identity: identity, count: count}
}

// Len returns the number of slots, placeholders included.
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the item in slot i and whether the slot holds a real item.
func (c *Collection[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(c.items) || !c.valid[i] {
		return zero, false
	}
	return c.items[i], true
}

// Valid reports whether slot i holds a real item.
func (c *Collection[T]) Valid(i int) bool {
	return i >= 0 && i < len(c.valid) && c.valid[i]
}

// Real counts non-placeholder slots.
func (c *Collection[T]) Real() int {
	n := 0
	for _, ok := range c.valid {
		if ok {
			n++
		}
	}
	return n
}

// Total returns the remote total carried by the first real item, or "" when
// there is none.
func (c *Collection[T]) Total() string {
	if c.count == nil {
		return ""
	}
	for i, ok := range c.valid {
		if ok {
			return c.count(c.items[i])
		}
	}
	return ""
}

// Items returns the real items in slot order.
func (c *Collection[T]) Items() []T {
	out := make([]T, 0, len(c.items))
	for i, ok := range c.valid {
		if ok {
			out = append(out, c.items[i])
		}
	}
	return out
}

// Find returns the first real item with the given identity.
func (c *Collection[T]) Find(id string) (T, int, bool) {
	for i, ok := range c.valid {
		if ok && c.identity(c.items[i]) == id {
			return c.items[i], i, true
		}
	}
	var zero T
	return zero, -1, false
}

// PadWrite replaces the collection with n placeholders followed by items.
func (c *Collection[T]) PadWrite(n int, items []T) {
	if n < 0 {
		n = 0
	}
	c.items = make([]T, n, n+len(items))
	c.valid = make([]bool, n, n+len(items))
	c.items = append(c.items, items...)
	for range items {
		c.valid = append(c.valid, true)
	}
	c.Dedupe()
}

// WriteAt stores items in slots offset, offset+1, ... growing the collection
// with placeholders as needed. Slot positions never shift: a real slot
// outside the written range that repeats a written identity becomes a
// placeholder, as does a repeat within items.
func (c *Collection[T]) WriteAt(offset int, items []T) {
	if offset < 0 {
		offset = 0
	}
	var zero T
	end := offset + len(items)
	for len(c.items) < end {
		c.items = append(c.items, zero)
		c.valid = append(c.valid, false)
	}
	written := make(map[string]struct{}, len(items))
	for k, item := range items {
		i := offset + k
		id := c.identity(item)
		if _, dup := written[id]; dup {
			c.items[i], c.valid[i] = zero, false
			continue
		}
		written[id] = struct{}{}
		c.items[i], c.valid[i] = item, true
	}
	for i, ok := range c.valid {
		if !ok || (i >= offset && i < end) {
			continue
		}
		if _, dup := written[c.identity(c.items[i])]; dup {
			c.items[i], c.valid[i] = zero, false
		}
	}
}

// MergeWrite appends items and drops any real slot whose identity was seen
// earlier in the collection. Used by scroll mode, where the collection never
// holds placeholders.
func (c *Collection[T]) MergeWrite(items []T) {
	c.items = append(c.items, items...)
	for range items {
		c.valid = append(c.valid, true)
	}
	c.Dedupe()
}

// Dedupe keeps the first occurrence of each identity. Placeholders are kept.
func (c *Collection[T]) Dedupe() {
	seen := make(map[string]struct{}, len(c.items))
	items := c.items[:0]
	valid := c.valid[:0]
	for i, ok := range c.valid {
		if ok {
			id := c.identity(c.items[i])
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		items = append(items, c.items[i])
		valid = append(valid, ok)
	}
	var zero T
	for i := len(items); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = items
	c.valid = valid
}

// Reset drops every slot.
func (c *Collection[T]) Reset() {
	c.items = nil
	c.valid = nil
}
