package main

import (
	"os"

	"github.com/arthur-debert/dopkg/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
