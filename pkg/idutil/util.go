package idutil

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Generator interface {
	Next() int64
}

type snowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator returns time-ordered ids. Every running instance
// needs a distinct nodeID in [0, 1023].
func NewSnowflakeGenerator(nodeID int64) (*snowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	return &snowflakeGenerator{node: node}, nil
}

func (g *snowflakeGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

// Time returns the creation time embedded in a snowflake id.
func Time(id int64) time.Time {
	return time.UnixMilli(snowflake.ParseInt64(id).Time())
}
