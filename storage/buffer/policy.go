package buffer

import (
	"strings"

	"github.com/pkg/errors"
)

// Policy selects the victim when the buffer pool is full
type Policy int

const (
	LRU Policy = iota
	FIFO
	CLOCK
)

func (p Policy) String() string {
	switch p {
	case LRU:
		return "lru"
	case FIFO:
		return "fifo"
	case CLOCK:
		return "clock"
	}
	return "unknown"
}

// ParsePolicy accepts the names returned by String, in any case
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lru":
		return LRU, nil
	case "fifo":
		return FIFO, nil
	case "clock":
		return CLOCK, nil
	}
	return LRU, errors.Errorf("unknown eviction policy %q", name)
}
