package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	t.Parallel()

	t.Run("adaptive allocation", func(t *testing.T) {
		t.Parallel()

		s, err := ByName("adaptive-allocation", DefaultConfig())
		require.NoError(t, err)
		assert.IsType(t, &AdaptiveAllocation{}, s)

		// Aliases
		s, err = ByName("  Adaptive_Allocation ", DefaultConfig())
		require.NoError(t, err)
		assert.IsType(t, &AdaptiveAllocation{}, s)
	})

	t.Run("noop", func(t *testing.T) {
		t.Parallel()

		s, err := ByName("noop", Config{})
		require.NoError(t, err)
		assert.IsType(t, NoopStrategy{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		_, err := ByName("martingale", Config{})
		assert.Error(t, err)
	})
}

func TestNoopStrategy(t *testing.T) {
	t.Parallel()

	s := NoopStrategy{}
	p := &Portfolio{Symbol: "BTC-USD", Cash: 10_000}

	sig := s.GenerateSignal(snap(100, ts(time.January, 10, 0)), p)
	assert.Equal(t, Hold, sig.Action)

	// OnTrade is a no-op and must not panic.
	s.OnTrade(sig, 100, 0, ts(time.January, 10, 0))
}
