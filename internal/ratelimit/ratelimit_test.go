package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	krl := New(1, 2)

	assert.True(t, krl.Allow("upstream"))
	assert.True(t, krl.Allow("upstream"))
	assert.False(t, krl.Allow("upstream"), "third request should exceed burst")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1)

	assert.True(t, krl.Allow("a"))
	assert.False(t, krl.Allow("a"))
	assert.True(t, krl.Allow("b"), "a different key has its own bucket")
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	krl := New(0.001, 1)
	require.True(t, krl.Allow("slow")) // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := krl.Wait(ctx, "slow")
	assert.Error(t, err)
}
