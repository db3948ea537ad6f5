package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadedWithin(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Should accept day and week units", func(t *testing.T) {
		after, err := uploadedWithin("7d", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC), after)

		after, err = uploadedWithin(" 1w12h ", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), after)
	})

	t.Run("Should reject malformed or empty windows", func(t *testing.T) {
		_, err := uploadedWithin("soon", now)
		assert.Error(t, err)
		_, err = uploadedWithin("0s", now)
		assert.ErrorContains(t, err, "not positive")
	})
}
