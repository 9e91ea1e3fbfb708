package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolKey_String(t *testing.T) {
	assert.Equal(t, "room:12", PoolKey{Kind: KindRoom, ID: 12}.String())
	assert.Equal(t, "tour:3", PoolKey{Kind: KindTour, ID: 3}.String())
}

func TestPool_Take(t *testing.T) {
	p := Pool{Key: PoolKey{Kind: KindRoom, ID: 1}, Total: 5, Remaining: 2}

	err := p.Take(3)
	var ic *InsufficientCapacityError
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, 2, ic.Available)
	assert.Equal(t, 3, ic.Requested)
	assert.Equal(t, 2, p.Remaining)

	require.ErrorIs(t, p.Take(0), ErrInvalidQuantity)

	require.NoError(t, p.Take(2))
	assert.Equal(t, 0, p.Remaining)
	assert.Equal(t, 5, p.Committed())
}

func TestPool_Give(t *testing.T) {
	p := Pool{Key: PoolKey{Kind: KindTour, ID: 1}, Total: 5, Remaining: 4}

	require.ErrorIs(t, p.Give(2), ErrOverflow)
	assert.Equal(t, 4, p.Remaining)

	require.NoError(t, p.Give(1))
	assert.Equal(t, 5, p.Remaining)
}

func TestPool_Resize(t *testing.T) {
	p := Pool{Key: PoolKey{Kind: KindRoom, ID: 1}, Total: 10, Remaining: 4}

	require.ErrorIs(t, p.Resize(5), ErrCapacityInUse)
	assert.Equal(t, 10, p.Total)

	require.NoError(t, p.Resize(6))
	assert.Equal(t, 6, p.Total)
	assert.Equal(t, 0, p.Remaining)

	require.NoError(t, p.Resize(20))
	assert.Equal(t, 14, p.Remaining)

	require.ErrorIs(t, p.Resize(0), ErrInvalidQuantity)
}

func TestInsufficientCapacityError_Message(t *testing.T) {
	err := &InsufficientCapacityError{Pool: PoolKey{Kind: KindTour, ID: 9}, Requested: 4, Available: 1}
	assert.Equal(t, "ledger: tour:9 has 1 spots available, 4 requested", err.Error())
}
