package domain

import "fmt"

// HistoryPolicy decides how played_on evolves on repeated plays.
type HistoryPolicy string

const (
	// HistoryLatest keeps only the most recent play time.
	HistoryLatest HistoryPolicy = "latest"
	// HistoryAppend also appends every play time to play_history.
	HistoryAppend HistoryPolicy = "append"
)

func ParseHistoryPolicy(s string) (HistoryPolicy, error) {
	switch HistoryPolicy(s) {
	case HistoryLatest, HistoryAppend:
		return HistoryPolicy(s), nil
	case "":
		return HistoryLatest, nil
	}

	return "", fmt.Errorf("unknown play history policy %q", s)
}
