package grouping

import (
	"fmt"
	"strings"
)

// SeriesKeyMode selects how a detected series pattern is turned into a group key.
type SeriesKeyMode string

const (
	// SeriesKeySeries groups at series level ("Show") with seasons as sub-groups.
	SeriesKeySeries SeriesKeyMode = "series"
	// SeriesKeySeason keeps the season marker in the key ("Show S01").
	SeriesKeySeason SeriesKeyMode = "season"
)

// ParseSeriesKeyMode converts a configuration string to a SeriesKeyMode.
func ParseSeriesKeyMode(s string) (SeriesKeyMode, error) {
	switch SeriesKeyMode(strings.ToLower(strings.TrimSpace(s))) {
	case SeriesKeySeries, "":
		return SeriesKeySeries, nil
	case SeriesKeySeason:
		return SeriesKeySeason, nil
	default:
		return "", fmt.Errorf("unknown series key mode %q (expected %q or %q)", s, SeriesKeySeries, SeriesKeySeason)
	}
}

// Config holds the tunable thresholds of the grouping heuristics.
type Config struct {
	// MinGroupingSize is the list size below which no grouping is attempted.
	MinGroupingSize int
	// MinPrefixLength is the length a shared name prefix must exceed
	// before the common-prefix fallback considers it.
	MinPrefixLength int
	// MinClusterSize is the minimum number of channels a group must hold.
	MinClusterSize int
	// SeriesKeyMode selects the series group key variant.
	SeriesKeyMode SeriesKeyMode
}

// DefaultConfig returns the empirically tuned thresholds.
func DefaultConfig() Config {
	return Config{
		MinGroupingSize: 3,
		MinPrefixLength: 5,
		MinClusterSize:  3,
		SeriesKeyMode:   SeriesKeySeries,
	}
}

// Validate reports invalid thresholds.
func (c Config) Validate() error {
	var errors []string

	if c.MinGroupingSize < 1 {
		errors = append(errors, "MinGroupingSize must be positive")
	}
	if c.MinPrefixLength < 0 {
		errors = append(errors, "MinPrefixLength must not be negative")
	}
	if c.MinClusterSize < 2 {
		errors = append(errors, "MinClusterSize must be at least 2")
	}
	if _, err := ParseSeriesKeyMode(string(c.SeriesKeyMode)); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("grouping config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
