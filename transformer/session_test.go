package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionAllocatesOneCachePerLayer(t *testing.T) {
	sess := NewSession(3, 1, 2, 4, 16)
	require.NotEqual(t, sess.ID.String(), "")
	for i := 0; i < 3; i++ {
		c := sess.Cache(i)
		require.NotNil(t, c)
		assert.Equal(t, 0, c.CurrentLen())
	}
}

func TestSessionsHaveDistinctIDs(t *testing.T) {
	a := NewSession(1, 1, 1, 4, 8)
	b := NewSession(1, 1, 1, 4, 8)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSessionClearResetsAllLayerCaches(t *testing.T) {
	sess := NewSession(2, 1, 1, 2, 8)
	k, v := makeKV(t, 1, 1, 2, 2, 0), makeKV(t, 1, 1, 2, 2, 0)
	_, _, err := sess.Cache(0).Update(k, v)
	require.NoError(t, err)
	sess.Clear()
	assert.Equal(t, 0, sess.Cache(0).CurrentLen())
}
