package ranking

import (
	"fmt"
	"sort"
	"strings"

	"dirigent/internal/types"
)

// Mode biases scoring toward the work the caller is doing. The zero
// value applies no adjustment.
type Mode string

const (
	ModeNone      Mode = ""
	ModeArchitect Mode = "architect"
	ModeCode      Mode = "code"
	ModeDebug     Mode = "debug"
)

// ParseMode normalizes a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone:
		return ModeNone, nil
	case ModeArchitect:
		return ModeArchitect, nil
	case ModeCode:
		return ModeCode, nil
	case ModeDebug:
		return ModeDebug, nil
	default:
		return ModeNone, fmt.Errorf("unknown mode %q", s)
	}
}

// modeMultipliers maps, per mode, topic or text keywords to score
// multipliers. A directive matching several keywords compounds them;
// the final score is clamped to 1.0 by the caller.
var modeMultipliers = map[Mode]map[string]float64{
	ModeArchitect: {
		"architecture": 1.3,
		"design":       1.2,
		"coupling":     1.2,
	},
	ModeCode: {
		"testing":        1.3,
		"implementation": 1.2,
	},
	ModeDebug: {
		"error-handling": 1.5,
		"logging":        1.3,
	},
}

// applyMode compounds the multipliers for every mode keyword the
// directive's topics, section, or text mention.
func applyMode(score float64, d types.Directive, mode Mode) float64 {
	table, ok := modeMultipliers[mode]
	if !ok {
		return score
	}

	haystack := strings.ToLower(d.Section + " " + d.Text)
	topics := make(map[string]bool, len(d.Topics))
	for _, t := range d.Topics {
		topics[strings.ToLower(t)] = true
	}

	// Multiply in a fixed key order so repeated runs agree bit for bit.
	keys := make([]string, 0, len(table))
	for kw := range table {
		keys = append(keys, kw)
	}
	sort.Strings(keys)

	for _, kw := range keys {
		if topics[kw] || strings.Contains(haystack, kw) {
			score *= table[kw]
		}
	}
	return score
}
