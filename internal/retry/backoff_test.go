package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_Growth(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 0)

	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 200*time.Millisecond, b.Next(1))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, 800*time.Millisecond, b.Next(3))
}

func TestExponentialBackoff_CappedAtMax(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 0)

	assert.Equal(t, time.Second, b.Next(10))
}

func TestExponentialBackoff_NegativeAttempt(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 0)

	assert.Equal(t, 100*time.Millisecond, b.Next(-5))
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 0.5)

	for i := 0; i < 100; i++ {
		wait := b.Next(1)
		// Base is 200ms, jitter is up to 50% either way.
		assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
		assert.LessOrEqual(t, wait, 300*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	t.Parallel()

	b := NewConstantBackoff(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, b.Next(0))
	assert.Equal(t, 250*time.Millisecond, b.Next(7))
	b.Reset()
	assert.Equal(t, 250*time.Millisecond, b.Next(0))
}
