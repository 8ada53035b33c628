package main

import (
	"os"

	"github.com/mikailyan/moscow-zoo-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
