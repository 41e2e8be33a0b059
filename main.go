// Command jerseys crawls a yupoo jersey gallery and serves the result.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/JakeFAU/jersey-gallery/cmd"
)

var version = "dev"

func main() {
	root := cmd.NewRootCmd()

	// fang cancels the command context on SIGINT/SIGTERM; crawl saves and exits cleanly.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
