package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/ndarray"
)

func TestRegisterModuleRejectsDuplicateName(t *testing.T) {
	root := NewModule("root")
	require.NoError(t, root.RegisterModule("child", NewModule("child")))
	err := root.RegisterModule("child", NewModule("child"))
	assert.Error(t, err)
}

func TestRegisterParameterRejectsDuplicateName(t *testing.T) {
	root := NewModule("root")
	w := NewParameter(ndarray.Zeros(ndarray.NewShape(2, 2)), "w")
	require.NoError(t, root.RegisterParameter("w", w))
	err := root.RegisterParameter("w", w)
	assert.Error(t, err)
}

func TestRegisterBufferRejectsDuplicateName(t *testing.T) {
	root := NewModule("root")
	buf := ndarray.Zeros(ndarray.NewShape(2))
	require.NoError(t, root.RegisterBuffer("cache", buf))
	err := root.RegisterBuffer("cache", buf)
	assert.Error(t, err)
}

func TestNamedParametersWalksPreOrderDotJoined(t *testing.T) {
	root := NewModule("root")
	child := NewModule("child")

	rootW := NewParameter(ndarray.Zeros(ndarray.NewShape(1)), "w")
	childW := NewParameter(ndarray.Zeros(ndarray.NewShape(1)), "w")

	require.NoError(t, root.RegisterParameter("w", rootW))
	require.NoError(t, child.RegisterParameter("w", childW))
	require.NoError(t, root.RegisterModule("child", child))

	named := root.NamedParameters("")

	order := []string{}
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"w", "child.w"}, order)

	got, ok := named.Get("child.w")
	require.True(t, ok)
	assert.Same(t, childW, got)
}

func TestNamedBuffersWalksPreOrderDotJoined(t *testing.T) {
	root := NewModule("root")
	child := NewModule("attn")
	require.NoError(t, root.RegisterModule("attn", child))

	cacheBuf := ndarray.Zeros(ndarray.NewShape(4))
	require.NoError(t, child.RegisterBuffer("kv_cache", cacheBuf))

	named := root.NamedBuffers("")
	got, ok := named.Get("attn.kv_cache")
	require.True(t, ok)
	assert.Same(t, cacheBuf, got)
}

func TestSetTrainingPropagatesRecursively(t *testing.T) {
	root := NewModule("root")
	mid := NewModule("mid")
	leaf := NewModule("leaf")
	require.NoError(t, mid.RegisterModule("leaf", leaf))
	require.NoError(t, root.RegisterModule("mid", mid))

	root.SetTraining(true)
	assert.True(t, root.Training())
	assert.True(t, mid.Training())
	assert.True(t, leaf.Training())

	root.SetTraining(false)
	assert.False(t, leaf.Training())
}

func TestContextReflectsTrainingFlag(t *testing.T) {
	root := NewModule("root")
	root.SetTraining(true)
	assert.True(t, root.Context().Training)
	root.SetTraining(false)
	assert.False(t, root.Context().Training)
}

func TestNewParameterRequiresGrad(t *testing.T) {
	p := NewParameter(ndarray.Zeros(ndarray.NewShape(3)), "b")
	assert.True(t, p.RequiresGrad)
	assert.False(t, p.HasCreator())
}
