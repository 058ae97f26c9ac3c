package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewApplicationLogger constructs a zap logger configured for human-readable console output.
// Output goes to stderr so that stdout stays free for command output and the stdio protocol.
func NewApplicationLogger(levelName string) (*zap.Logger, error) {
	if strings.TrimSpace(levelName) == EmptyString {
		levelName = DefaultLogLevel
	}
	level, parseErr := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelName)))
	if parseErr != nil {
		return nil, fmt.Errorf("parse log level %q: %w", levelName, parseErr)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}
