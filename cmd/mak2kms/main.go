package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeploy/mak2kms/internal/config"
	"github.com/opsdeploy/mak2kms/internal/exitcode"
	"github.com/opsdeploy/mak2kms/internal/logging"
	"github.com/opsdeploy/mak2kms/internal/metrics"
	"github.com/opsdeploy/mak2kms/internal/model"
	"github.com/opsdeploy/mak2kms/internal/progress"
	"github.com/opsdeploy/mak2kms/internal/remediate"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

var runRemediation = func(ctx context.Context, cfg *config.Config, log *zap.Logger, notify *progress.Notifier) (*model.RemediationResult, error) {
	return remediate.New(cfg, log, notify).Run(ctx)
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `mak2kms - switch Windows and Office 2013 volume licensing from MAK to KMS

Queries the current activation state, replaces MAK keys with the matching
KMS client keys, points the machine at the central KMS server and triggers
activation. Designed to run unattended from a deployment pipeline.

Usage:
  mak2kms [options]

Options:
`)
	fs.PrintDefaults()
}

func run(args []string) (code int) {
	fs := flag.NewFlagSet("mak2kms", flag.ContinueOnError)
	deployMode := fs.String("deploy-mode", "interactive", "deployment mode: interactive, silent or noninteractive")
	allowReboot := fs.Bool("allow-reboot-passthru", false, "exit 3010 instead of 0 when a reboot is pending")
	disableLogging := fs.Bool("disable-logging", false, "do not write the per-run log file")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitcode.Success
		}
		return exitcode.Failure
	}

	mode, err := model.ParseDeployMode(*deployMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage(fs)
		return exitcode.Failure
	}

	cfg := config.Default()
	session := logging.NewSession()
	logger, logPath := logging.New(logging.Options{
		Mode:        mode,
		Session:     session,
		Dir:         cfg.LogDir,
		DisableFile: *disableLogging,
	})
	defer func() { _ = logger.Sync() }()

	// every termination goes through the exit-code contract, even a panic
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic during remediation", zap.Any("panic", rec), zap.Stack("stack"))
			code = exitcode.Failure
		}
	}()

	notify := progress.New(mode, os.Stdout)
	started := time.Now()
	logger.Info("mak2kms starting",
		zap.String("deploy_mode", string(mode)),
		zap.Bool("allow_reboot_passthru", *allowReboot))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	res, runErr := runRemediation(ctx, cfg, logger, notify)
	res.Session = session

	code = exitcode.FromRun(runErr, res.RebootRequired, *allowReboot)
	duration := time.Since(started)

	rec := metrics.New()
	rec.Observe(res, code, duration)
	if err := rec.WriteFile(cfg.MetricsDir); err != nil {
		logger.Warn("metrics textfile not written", zap.Error(err))
	}

	fields := []zap.Field{
		zap.Int("exit_code", code),
		zap.Bool("changed", res.Changed),
		zap.Bool("reboot_required", res.RebootRequired),
		zap.Duration("duration", duration),
		zap.Int("actions", len(res.Actions)),
	}
	if logPath != "" {
		fields = append(fields, zap.String("log_file", logPath))
	}
	if runErr != nil {
		logger.Error("remediation failed", append(fields, zap.Error(runErr))...)
		return code
	}

	logger.Info("remediation finished", fields...)
	if res.RebootRequired {
		notify.Step("A reboot is required to complete the licensing change")
	}
	return code
}
