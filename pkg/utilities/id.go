package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// ID strategies accepted by NewIDGenerator.
const (
	IDStrategyUUID      = "uuid"
	IDStrategyKSUID     = "ksuid"
	IDStrategySnowflake = "snowflake"
)

// NewUUID generates a random (v4) UUID string.
func NewUUID() string {
	return uuid.NewString()
}

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeGenerator returns a generator bound to one snowflake node so
// IDs from the same process never collide. If the node cannot be
// initialized, it falls back to KSUIDs.
func NewSnowflakeGenerator(nodeID int64) func() string {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return NewKSUID
	}
	return func() string { return node.Generate().String() }
}

// NewIDGenerator returns an ID function for the named strategy. Unknown or
// empty strategies use UUIDs. The snowflake node comes from SNOWFLAKE_NODE.
func NewIDGenerator(strategy string) func() string {
	switch strategy {
	case IDStrategyKSUID:
		return NewKSUID
	case IDStrategySnowflake:
		return NewSnowflakeGenerator(snowflakeNodeFromEnv())
	default:
		return NewUUID
	}
}

func snowflakeNodeFromEnv() int64 {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		// default to node 1 when not provided so snowflake IDs are still produced
		return 1
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}
