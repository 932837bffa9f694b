package idutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnowflakeGenerator(t *testing.T) {
	g, err := NewSnowflakeGenerator(1)
	require.NoError(t, err)

	before := time.Now().Add(-time.Second)
	a := g.Next()
	b := g.Next()
	require.Less(t, a, b)
	require.True(t, Time(a).After(before))
	require.True(t, Time(b).Before(time.Now().Add(time.Second)))

	_, err = NewSnowflakeGenerator(4096)
	require.Error(t, err)
}
