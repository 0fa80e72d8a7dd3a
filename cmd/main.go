package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotimirror/internal/shared"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup happens before the process exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := shared.LoadOrDefault(DefaultConfigPath)
	if err != nil {
		shared.NewLogger(nil).Errorf("failed to load config: %v", err)
		return 1
	}
	config.ApplyEnv()

	logger, logFile := shared.NewFileLogger(config.Log)
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: DefaultConfigPath,
		Logger:     logger,
		LogFile:    logFile,
		NewLogger:  shared.NewFileLogger,
	})
	defer runner.Close()

	if err := runner.app().Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			runner.logger.Info("interrupted")
			return 0
		}
		runner.logger.Errorf("application error: %v", err)
		return 1
	}
	return 0
}
