package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/dopkg/internal/cli"
	"github.com/arthur-debert/dopkg/internal/version"
)

func main() {
	rootCmd := cli.NewRootCmd()
	rootCmd.DisableAutoGenTag = true

	header := &doc.GenManHeader{
		Title:   "DOPKG",
		Section: "1",
		Source:  "dopkg " + version.Version,
		Manual:  "dopkg manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
