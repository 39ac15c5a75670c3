package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string. Used for user
// and bug identifiers, which sort roughly by creation time.
func NewKSUID() string {
	return ksuid.New().String()
}

// Snowflake nodes are cached per node ID: the sequence counter lives on
// the node, so a fresh node per call would repeat IDs minted within the
// same millisecond.
var (
	nodeMu sync.Mutex
	nodes  = map[int64]*snowflake.Node{}
)

func nodeFor(nodeID int64) (*snowflake.Node, error) {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	if node, ok := nodes[nodeID]; ok {
		return node, nil
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	nodes[nodeID] = node
	return node, nil
}

// NewSnowflakeID generates a snowflake ID string using a node ID from
// the environment variable SNOWFLAKE_NODE. Activity log entries use
// these since they are cheap and strictly increasing per node.
func NewSnowflakeID() string {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		return NewSnowflakeIDWithNode(1)
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return NewSnowflakeIDWithNode(1)
	}
	return NewSnowflakeIDWithNode(nodeID)
}

// NewSnowflakeIDWithNode generates a snowflake ID string using the provided node ID.
// If the node cannot be initialized, it falls back to a KSUID string.
func NewSnowflakeIDWithNode(nodeID int64) string {
	node, err := nodeFor(nodeID)
	if err != nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
