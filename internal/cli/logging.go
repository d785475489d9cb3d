package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/goalcast/internal/config"
	"github.com/okian/goalcast/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the global logger from cfg. When logFile is set,
// output goes to both stderr and the file; the returned func closes it.
func SetupLogging(cfg *config.Config, logFile string) (func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeFn = func() { _ = f.Close() }
	}

	if err := logger.Init(logger.WithOutput(out), logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("log_file", logFile))
	}
	return closeFn, nil
}
