package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/temirov/vaultctx/internal/cli"
	"github.com/temirov/vaultctx/internal/utils"
)

// main is the entry point for the vaultctx command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(os.Getenv(utils.LogLevelEnvironmentVariable))
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applicationExecutionError := cli.Execute(ctx, loggerInstance)
	if applicationExecutionError == nil {
		return
	}
	if outcome, isToolOutcome := cli.OutcomeOf(applicationExecutionError); isToolOutcome {
		fmt.Fprintln(os.Stderr, outcome.Text())
		stop()
		_ = loggerInstance.Sync()
		os.Exit(1)
	}
	loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
}
