package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThresholds(t *testing.T) {
	cases := map[int]int{
		-5:   0,
		0:    0,
		99:   0,
		100:  1,
		299:  1,
		300:  2,
		999:  3,
		1000: 4,
		2000: 5,
		2500: 5,
	}
	for points, level := range cases {
		assert.Equal(t, level, Resolve(points).Level, "points=%d", points)
	}
	assert.Equal(t, "Master Guardian", Resolve(2500).Title)
}

func TestResolveIsMonotonic(t *testing.T) {
	l := Default()
	prev := l.Resolve(0).Level
	for p := 1; p <= 2600; p++ {
		lvl := l.Resolve(p).Level
		require.GreaterOrEqual(t, lvl, prev, "points=%d", p)
		prev = lvl
	}
}

func TestNext(t *testing.T) {
	l := Default()
	next, ok := l.Next(150)
	require.True(t, ok)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 300, next.Threshold)

	_, ok = l.Next(2000)
	assert.False(t, ok)
}

func TestNewLadderValidation(t *testing.T) {
	_, err := NewLadder(nil)
	assert.ErrorIs(t, err, ErrInvalidLadder)

	_, err = NewLadder([]Tier{{Level: 0, Threshold: 10}})
	assert.ErrorIs(t, err, ErrInvalidLadder)

	_, err = NewLadder([]Tier{{Level: 0}, {Level: 1, Threshold: 50}, {Level: 2, Threshold: 50}})
	assert.ErrorIs(t, err, ErrInvalidLadder)

	l, err := NewLadder([]Tier{{Level: 0}, {Level: 1, Threshold: 10, Title: "One"}})
	require.NoError(t, err)
	assert.Equal(t, "One", l.Resolve(10).Title)
}

func TestDefaultIsCopy(t *testing.T) {
	l := Default()
	l[1].Threshold = 1
	assert.Equal(t, 0, Resolve(50).Level)
}
