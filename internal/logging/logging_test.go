package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartboard-client/internal/logging"
)

func TestNew(t *testing.T) {
	for _, json := range []bool{true, false} {
		log, err := logging.New("warn", json)
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zap.InfoLevel))
		assert.True(t, log.Core().Enabled(zap.WarnLevel))
	}

	_, err := logging.New("loud", false)
	assert.Error(t, err)
}
