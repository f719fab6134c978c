// Package logging builds the per-run logger: a console core tuned to the
// deploy mode plus a JSON file core under the deployment log directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opsdeploy/mak2kms/internal/model"
)

// Options contains all required logger initialization inputs.
type Options struct {
	Mode        model.DeployMode
	Session     string
	Dir         string
	DisableFile bool
}

// NewSession returns the identifier that ties one run's log lines, log file
// and metrics together.
func NewSession() string {
	return uuid.NewString()
}

// New builds the run logger and returns it together with the log file path,
// empty when file logging is off or the file could not be opened. Console
// output goes to stderr; in silent mode only errors are printed.
func New(opts Options) (*zap.Logger, string) {
	consoleLevel := zapcore.InfoLevel
	if opts.Mode == model.ModeSilent {
		consoleLevel = zapcore.ErrorLevel
	}
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), consoleLevel),
	}

	logPath := ""
	var fileErr error
	if !opts.DisableFile {
		var f *os.File
		f, fileErr = openLogFile(opts.Dir, opts.Session)
		if fileErr == nil {
			fileCfg := zap.NewProductionEncoderConfig()
			fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(f), zapcore.InfoLevel))
			logPath = f.Name()
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	logger := zap.New(zapcore.NewTee(cores...)).With(
		zap.String("session", opts.Session),
		zap.String("host", hostname),
	)
	if fileErr != nil {
		logger.Warn("file logging unavailable", zap.Error(fileErr))
	}
	return logger, logPath
}

func openLogFile(dir, session string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("mak2kms_%s.log", session))
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
