package engine

import "sync"

// scanCursor is the first block not yet covered by a completed backfill page.
// It only moves forward over contiguous pages, so a page that fails keeps its range pending.
type scanCursor struct {
	mu   sync.Mutex
	next uint64
	set  bool
}

// begin anchors the cursor at the start of the first backfill
func (c *scanCursor) begin(start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set {
		c.next = start
		c.set = true
	}
}

// advance records the completed page [from, to]
func (c *scanCursor) advance(from, to uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set || from > c.next || to < c.next {
		return
	}
	c.next = to + 1
}

// from returns the block to resume scanning at, or nil before the first backfill
func (c *scanCursor) from() *uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set {
		return nil
	}
	next := c.next
	return &next
}
