package main

import (
	"os"

	"github.com/tidemark-labs/mailpoll/internal/adapters/driving/cli"
)

// version is set by goreleaser ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
