package entities

import (
	"strings"

	"github.com/google/uuid"
)

// NodeIDPrefix marks generated node ids.
const NodeIDPrefix = "node_"

// IDGenerator produces fresh node ids.
type IDGenerator func() string

// GenerateNodeID returns "node_" followed by 8 random lowercase hex characters.
func GenerateNodeID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return NodeIDPrefix + hex[:8]
}

// GenerateUserID returns "user_" followed by 12 random lowercase hex characters.
func GenerateUserID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "user_" + hex[:12]
}
