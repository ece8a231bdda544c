package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireAndReleaseWithPromotion(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	s := New(FIFO, 10, 1024)
	b, err := s.Create("a")
	require.NoError(err)

	c1, c2, c3 := ClientHandle(1), ClientHandle(2), ClientHandle(3)

	require.False(s.IsLocked(b))
	s.AcquireLock(b, c1)
	assert.True(s.IsLockedByOther(b, c2))
	assert.False(s.IsLockedByOther(b, c1))

	s.EnqueueWaiter(b, c2)
	s.EnqueueWaiter(b, c3)

	next, ok := s.ReleaseLock(b)
	require.True(ok)
	assert.Equal(c2, next) // strictly FIFO: c2 enqueued first

	next, ok = s.ReleaseLock(b)
	require.True(ok)
	assert.Equal(c3, next)

	_, ok = s.ReleaseLock(b)
	assert.False(ok)
	assert.False(s.IsLocked(b))
}

func TestClientCleanupReleasesLockAndDropsWaiters(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	s := New(FIFO, 10, 1024)
	a, err := s.Create("a")
	require.NoError(err)
	other, err := s.Create("other")
	require.NoError(err)

	holder, waiter, bystander := ClientHandle(1), ClientHandle(2), ClientHandle(3)

	s.AcquireLock(a, holder)
	s.EnqueueWaiter(a, waiter)
	s.AddOpener(a, bystander)
	s.EnqueueWaiter(other, bystander)

	promotions := s.ClientCleanup(holder)
	require.Len(promotions, 1)
	assert.Equal(waiter, promotions[0].Client)
	assert.Equal(waiter, a.LockedBy)

	// bystander disconnecting is silently dropped from other's wait queue
	// and removed from a's open set, without promoting anyone.
	promotions = s.ClientCleanup(bystander)
	assert.Empty(promotions)
	assert.False(s.IsOpenedBy(a, bystander))
	assert.Empty(other.LockWaitQueue)
}
