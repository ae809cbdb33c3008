package log

import (
	"errors"
	"testing"
)

func TestNoopLoggerDropsEverything(t *testing.T) {
	logger := NewNoopLogger()
	logger.Debug("a", String("k", "v"))
	logger.Info("b", Int("n", 1))
	logger.Warn("c", Err(errors.New("boom")))
	logger.Error("d")
}
