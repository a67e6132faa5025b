package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	t.Run("rational notation", func(t *testing.T) {
		fps, err := parseFrameRate("24000/1001")
		require.NoError(t, err)
		assert.InDelta(t, 23.976, fps, 0.001)
	})

	t.Run("whole rational", func(t *testing.T) {
		fps, err := parseFrameRate("30/1")
		require.NoError(t, err)
		assert.Equal(t, 30.0, fps)
	})

	t.Run("plain number", func(t *testing.T) {
		fps, err := parseFrameRate("25")
		require.NoError(t, err)
		assert.Equal(t, 25.0, fps)
	})

	t.Run("zero denominator", func(t *testing.T) {
		_, err := parseFrameRate("24/0")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseFrameRate("fast")
		assert.Error(t, err)
	})
}
