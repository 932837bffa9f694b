package errorx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	err := New(NotFound, "Not found quest %s", "q1")
	require.Equal(t, "Not found quest q1", err.Error())
	require.True(t, Is(err, NotFound))
	require.False(t, Is(err, BadRequest))

	wrapped := fmt.Errorf("load: %w", err)
	require.True(t, Is(wrapped, NotFound))

	require.False(t, Is(fmt.Errorf("plain"), NotFound))
	require.True(t, Is(Unknown, Unknown.Code))
}
