package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(-1, 4)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(10, 0)
	require.ErrorIs(t, err, ErrInvalidDegree)

	_, err = New(10, 256)
	require.ErrorIs(t, err, ErrInvalidDegree)

	g, err := New(10, 255)
	require.NoError(t, err)
	assert.Equal(t, 10, g.N())
	assert.Equal(t, 255, g.R())
}

func TestSetNeighborsInvariants(t *testing.T) {
	g, err := New(8, 3)
	require.NoError(t, err)

	// Self-loop and duplicates are dropped, length capped at R.
	g.SetNeighbors(0, []uint32{0, 1, 1, 2, 3, 4})
	assert.Equal(t, []uint32{1, 2, 3}, g.Neighbors(0))

	// Replacement, not append.
	g.SetNeighbors(0, []uint32{5})
	assert.Equal(t, []uint32{5}, g.Neighbors(0))
	assert.Equal(t, 1, g.Degree(0))
}

func TestAddEdge(t *testing.T) {
	g, err := New(8, 2)
	require.NoError(t, err)

	assert.False(t, g.AddEdge(0, 1))
	assert.False(t, g.AddEdge(0, 1)) // already present
	assert.False(t, g.AddEdge(0, 0)) // self-loop ignored
	assert.Equal(t, []uint32{1}, g.Neighbors(0))

	assert.False(t, g.AddEdge(0, 2))
	assert.True(t, g.AddEdge(0, 3)) // full: overflow signalled, edge not added
	assert.Equal(t, []uint32{1, 2}, g.Neighbors(0))
}

func TestReachableFromMedoid(t *testing.T) {
	g, err := New(5, 2)
	require.NoError(t, err)

	// 0 -> 1 -> 2, 3 isolated, 4 -> 0.
	g.SetNeighbors(0, []uint32{1})
	g.SetNeighbors(1, []uint32{2})
	g.SetNeighbors(4, []uint32{0})
	g.SetMedoid(0)

	assert.Equal(t, 3, g.ReachableFromMedoid())

	g.SetMedoid(4)
	assert.Equal(t, 4, g.ReachableFromMedoid())
}

func TestDegreeStats(t *testing.T) {
	g, err := New(4, 3)
	require.NoError(t, err)

	g.SetNeighbors(0, []uint32{1, 2, 3})
	g.SetNeighbors(1, []uint32{0})

	maxDeg, avgDeg := g.DegreeStats()
	assert.Equal(t, 3, maxDeg)
	assert.InDelta(t, 1.0, avgDeg, 1e-9)
}
