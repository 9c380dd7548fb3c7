package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLockerLockAndUnlock(t *testing.T) {
	l := NewMutexLocker()
	unlock, err := l.Lock(context.Background(), "tenant-1", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
}

func TestMutexLockerSerializesSameTenant(t *testing.T) {
	l := NewMutexLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "tenant-1", time.Second)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(ctx, "tenant-1", time.Second)
		require.NoError(t, err)
		close(acquired)
		_ = second(ctx)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired before first was released")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, unlock(ctx))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestMutexLockerAllowsDifferentTenantsConcurrently(t *testing.T) {
	l := NewMutexLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "tenant-a", time.Second)
	require.NoError(t, err)
	defer unlockA(ctx)

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "tenant-b", time.Second)
		require.NoError(t, err)
		_ = unlockB(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different tenant should not block")
	}
}

func TestTenantLockerInterfaceSatisfiedByMutexLocker(t *testing.T) {
	var _ TenantLocker = NewMutexLocker()
	assert.NotNil(t, NewMutexLocker())
}
