package ui

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/types"
)

// InfoMarkdown renders info as a markdown document
func InfoMarkdown(info FormulaInfo) string {
	f := info.Formula
	var b strings.Builder

	fmt.Fprintf(&b, "# %s %s\n\n", f.Name, f.Version)
	if f.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", f.Description)
	}
	if f.Homepage != "" {
		fmt.Fprintf(&b, "Homepage: <%s>\n\n", f.Homepage)
	}

	b.WriteString("## Source\n\n")
	fmt.Fprintf(&b, "- URL: `%s`\n", f.URL)
	fmt.Fprintf(&b, "- %s: `%s`\n\n", f.Algorithm, f.Hash)

	if len(f.Dependencies) > 0 {
		b.WriteString("## Dependencies\n\n")
		for _, kind := range []types.DependencyKind{types.DependencyRuntime, types.DependencyBuild} {
			for _, d := range f.DependenciesOf(kind) {
				fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.Kind)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Install\n\n```sh\n")
	for _, step := range f.Install {
		b.WriteString(step)
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")

	if f.Test != nil {
		b.WriteString("## Test\n\n")
		fmt.Fprintf(&b, "```sh\n%s\n```\n\nExpects %s", f.Test.Command, f.Test.Predicate.Describe())
		if f.Test.ExitCode != nil {
			fmt.Fprintf(&b, " and exit status %d", *f.Test.ExitCode)
		}
		b.WriteString(".\n\n")
	}

	b.WriteString("## Status\n\n")
	if rec := info.Installed; rec != nil {
		fmt.Fprintf(&b, "Installed %s at `%s` on %s (%d files).\n",
			rec.Version, rec.Prefix, rec.InstalledAt.Format("2006-01-02 15:04"), len(rec.Files))
	} else {
		b.WriteString("Not installed.\n")
	}
	return b.String()
}

func dependencyList(deps []types.Dependency) string {
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		names = append(names, d.String())
	}
	return strings.Join(names, ", ")
}
