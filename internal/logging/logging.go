package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the console logger
type Options struct {
	// Level is a zap level name such as "debug", "info" or "warn"
	Level string

	// Output defaults to os.Stdout
	Output io.Writer

	NoTime bool
}

// New builds a line-oriented console logger
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(newEncoder(opts), zapcore.AddSync(out), level)
	return zap.New(core).Sugar(), nil
}

func newEncoder(opts Options) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.CallerKey = zapcore.OmitKey
	if opts.NoTime {
		encoderConfig.TimeKey = zapcore.OmitKey
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}
