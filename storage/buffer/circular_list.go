// this code is derived from https://github.com/brunocalza/go-bustub

package buffer

import (
	"fmt"

	"github.com/ryogrid/SamehadaPager/types"
)

type node struct {
	key   types.PageID
	value bool // reference bit
	next  *node
	prev  *node
}

type circularList struct {
	head       *node
	tail       *node
	size       uint32
	capacity   uint32
	supportMap map[types.PageID]*node
}

func (c *circularList) hasKey(key types.PageID) bool {
	_, ok := c.supportMap[key]
	return ok
}

func (c *circularList) find(key types.PageID) *node {
	return c.supportMap[key]
}

// insert appends key behind the tail. An existing key only gets its value updated.
func (c *circularList) insert(key types.PageID, value bool) {
	if node, ok := c.supportMap[key]; ok {
		node.value = value
		return
	}
	if c.size == c.capacity {
		panic("circularList::insert capacity is full")
	}

	newNode := &node{key, value, nil, nil}
	if c.size == 0 {
		newNode.next = newNode
		newNode.prev = newNode
		c.head = newNode
		c.tail = newNode
	} else {
		newNode.next = c.head
		newNode.prev = c.tail
		c.tail.next = newNode
		c.head.prev = newNode
		c.tail = newNode
	}

	c.size++
	c.supportMap[key] = newNode
}

func (c *circularList) remove(key types.PageID) {
	node, ok := c.supportMap[key]
	if !ok {
		return
	}

	if c.size == 1 {
		c.head = nil
		c.tail = nil
		c.size--
		delete(c.supportMap, key)
		return
	}

	if node == c.head {
		c.head = c.head.next
	}

	if node == c.tail {
		c.tail = c.tail.prev
	}

	node.next.prev = node.prev
	node.prev.next = node.next

	c.size--
	delete(c.supportMap, key)
}

func (c *circularList) String() string {
	if c.size == 0 {
		return "circularList is empty."
	}
	ptr := c.head
	printStr := fmt.Sprintf("circularList size:%d supportMap len:%d |", c.size, len(c.supportMap))
	for i := uint32(0); i < c.size; i++ {
		printStr += fmt.Sprintf("-%v,%v,%v,%v-", ptr.key, ptr.value, ptr.prev.key, ptr.next.key)
		ptr = ptr.next
	}
	return printStr
}

func newCircularList(maxSize uint32) *circularList {
	return &circularList{nil, nil, 0, maxSize, make(map[types.PageID]*node)}
}
