package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until Initialize is called,
// so packages can log safely from tests.
var Logger = zap.NewNop().Sugar()

// Initialize builds the global logger. JSON output is meant for log shippers,
// the console encoder for cron mail and terminals.
func Initialize(jsonOutput bool) error {
	var (
		zl  *zap.Logger
		err error
	)

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.OutputPaths = []string{"stdout"}
		zl, err = cfg.Build()
		if err != nil {
			return err
		}
	} else {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.AddSync(os.Stdout),
			zap.InfoLevel,
		))
	}

	Logger = zl.Sugar()
	return nil
}

// Named returns a child of the global logger for one component.
func Named(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() {
	_ = Logger.Sync()
}
