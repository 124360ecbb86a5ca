// Command lettermerge generates appraisal letters from a spreadsheet and
// optionally emails them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/cli"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// version is set at build time.
var version = "dev"

// shutdownTimeout bounds the wait for background deliveries at exit.
const shutdownTimeout = 2 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := configDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	app, err := wire(ctx, dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	cli.SetVersion(version)
	cli.SetSettingsService(app.settings)
	cli.SetBatchService(app.batches)
	cli.SetGenerateService(app.generator)

	code := 0
	if err := cli.Execute(ctx); err != nil {
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("shutdown: %v", err)
	}
	return code
}

// configDir honours LETTERMERGE_HOME, then ~/.lettermerge.
func configDir() (string, error) {
	if dir := os.Getenv("LETTERMERGE_HOME"); dir != "" {
		return dir, nil
	}
	return file.DefaultDir()
}
