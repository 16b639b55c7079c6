package main

import (
	"context"
	"os"
)

func main() {
	runner := NewRunner(RunnerOpts{})
	app := runner.App()

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.logger.Fatal("application error", "error", err)
	}
}
