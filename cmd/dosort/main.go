package main

import (
	"os"

	"github.com/arthur-debert/dosort/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
