package storage

import "fmt"

// Policy selects the eviction victim-selection algorithm (spec §3, §4.E).
type Policy int

const (
	FIFO Policy = iota
	LRU
	LFU
)

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case LFU:
		return "LFU"
	default:
		return "UNKNOWN"
	}
}

// ParsePolicy parses the replacement_policy config value. Unlike the
// original source, which never actually read this key from the config file
// (spec §9 design note), this implementation treats it as a real,
// validated config value.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "FIFO":
		return FIFO, nil
	case "LRU":
		return LRU, nil
	case "LFU":
		return LFU, nil
	default:
		return 0, fmt.Errorf("storage: unknown replacement policy %q", s)
	}
}
