package logger_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdpiprava/esquery/logger"
)

func Test_New(t *testing.T) {
	log := logger.New("registry")

	entry, ok := log.(*logrus.Entry)
	require.True(t, ok)
	assert.Equal(t, "registry", entry.Data["name"])
}

func Test_OrNew(t *testing.T) {
	given, _ := test.NewNullLogger()

	assert.Same(t, given, logger.OrNew(given, "ignored"))
	assert.NotNil(t, logger.OrNew(nil, "fallback"))
}

func Test_Context(t *testing.T) {
	t.Run("should return logger stored in context", func(t *testing.T) {
		given, hook := test.NewNullLogger()
		ctx := logger.WithLogger(context.Background(), given.WithField("request", "r1"))

		logger.FromContext(ctx).Info("hello")

		require.Len(t, hook.Entries, 1)
		assert.Equal(t, "r1", hook.LastEntry().Data["request"])
	})

	t.Run("should fall back to base logger", func(t *testing.T) {
		assert.Same(t, logger.Base(), logger.FromContext(context.Background()))
	})
}

func Test_SetLevel(t *testing.T) {
	previous := logger.Base().Logger.GetLevel()
	t.Cleanup(func() { logger.SetLevel(previous) })

	logger.SetLevel(logrus.DebugLevel)

	assert.Equal(t, logrus.DebugLevel, logger.Base().Logger.GetLevel())
}
