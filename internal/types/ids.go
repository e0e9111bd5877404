package types

import (
	"time"

	"github.com/google/uuid"
)

// NodeID identifies a rule or group node. UUIDv7 string; editors may supply their own ids
// and the compiler only echoes them in diagnostics.
type NodeID string

// QueryID identifies a saved rule tree.
type QueryID string

// NewNodeID generates a UUIDv7 node identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewNodeID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()).String())
}

// NewQueryID generates a UUIDv7 saved-query identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
func NewQueryID() QueryID {
	return QueryID(uuid.Must(uuid.NewV7()).String())
}

// ParseNodeID validates and converts a string to NodeID.
func ParseNodeID(s string) (NodeID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return NodeID(s), nil
}

// ParseQueryID validates and converts a string to QueryID.
func ParseQueryID(s string) (QueryID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return QueryID(s), nil
}

// QueryIDTime extracts the timestamp embedded in a UUIDv7 query id.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func QueryIDTime(id QueryID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
