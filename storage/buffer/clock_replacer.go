// this code is derived from https://github.com/brunocalza/go-bustub

package buffer

import (
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/types"
)

// ClockReplacer represents the clock replacer algorithm
type ClockReplacer struct {
	cList     *circularList
	clockHand *node
}

// Victim sweeps from the hand, clearing reference bits, and nominates the
// first page whose bit is already clear. The hand stays on the nominee.
func (c *ClockReplacer) Victim() (types.PageID, bool) {
	if c.cList.size == 0 {
		return types.InvalidPageID, false
	}
	common.ShPrintf(common.DEBUGGING, "ClockReplacer::Victim: hand=%d %s\n", c.clockHand.key, c.cList)

	for {
		if c.clockHand.value {
			c.clockHand.value = false
			c.clockHand = c.clockHand.next
		} else {
			return c.clockHand.key, true
		}
	}
}

// Inserted adds a page with its reference bit set
func (c *ClockReplacer) Inserted(pageID types.PageID) {
	if c.cList.hasKey(pageID) {
		c.Accessed(pageID)
		return
	}
	c.cList.insert(pageID, true)
	if c.cList.size == 1 {
		c.clockHand = c.cList.head
	}
}

// Accessed sets the reference bit of a page
func (c *ClockReplacer) Accessed(pageID types.PageID) {
	if node := c.cList.find(pageID); node != nil {
		node.value = true
	}
}

// Removed takes a page out of the clock
func (c *ClockReplacer) Removed(pageID types.PageID) {
	node := c.cList.find(pageID)
	if node == nil {
		return
	}

	if c.clockHand == node {
		c.clockHand = node.next
	}
	c.cList.remove(pageID)
	if c.cList.size == 0 {
		c.clockHand = nil
	}
}

// Size returns the size of the clock
func (c *ClockReplacer) Size() uint32 {
	return c.cList.size
}

// NewClockReplacer instantiates a new clock replacer
func NewClockReplacer(poolSize uint32) *ClockReplacer {
	cList := newCircularList(poolSize)
	return &ClockReplacer{cList, nil}
}
