package locks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesKey(t *testing.T) {
	l := NewLocal()

	release, acquired, err := l.TryAcquire(context.Background(), "order_1")
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := l.TryAcquire(context.Background(), "order_1")
	require.NoError(t, err)
	assert.False(t, again, "second acquisition of a held key must fail")

	_, other, err := l.TryAcquire(context.Background(), "order_2")
	require.NoError(t, err)
	assert.True(t, other, "distinct keys are independent")

	release()

	_, reacquired, err := l.TryAcquire(context.Background(), "order_1")
	require.NoError(t, err)
	assert.True(t, reacquired, "released keys can be taken again")
}
