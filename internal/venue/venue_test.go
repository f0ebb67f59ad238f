package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/domain"
)

func TestForName(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			v, err := ForName(name)
			require.NoError(t, err)
			assert.Equal(t, name, v.Name())
		})
	}

	t.Run("unknown venue", func(t *testing.T) {
		_, err := ForName("binance")
		assert.ErrorIs(t, err, domain.ErrUnknownVenue)
	})
}
