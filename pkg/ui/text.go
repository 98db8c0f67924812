package ui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arthur-debert/dopkg/pkg/types"
)

// textRenderer writes unstyled, line oriented output suitable for pipes
type textRenderer struct {
	w io.Writer
}

func (r *textRenderer) RenderRecords(records []types.InstallationRecord) error {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Name, rec.Version, rec.Prefix)
	}
	return tw.Flush()
}

func (r *textRenderer) RenderInstall(reports []InstallReport) error {
	for _, rep := range reports {
		switch {
		case rep.Err != nil && rep.Warning == nil:
			fmt.Fprintf(r.w, "failed %s %s: %v\n", rep.Name, rep.Version, rep.Err)
		case rep.Warning != nil:
			state := "installed"
			if rep.Removed {
				state = "removed"
			}
			fmt.Fprintf(r.w, "%s %s %s (self test failed: %v)\n", state, rep.Name, rep.Version, rep.Warning)
		default:
			fmt.Fprintf(r.w, "installed %s %s %s\n", rep.Name, rep.Version, rep.Prefix)
		}
	}
	return nil
}

func (r *textRenderer) RenderInfo(info FormulaInfo) error {
	_, err := fmt.Fprint(r.w, InfoMarkdown(info))
	return err
}

func (r *textRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, msg)
	return err
}

func (r *textRenderer) RenderError(err error) error {
	if _, werr := fmt.Fprintf(r.w, "Error: %v\n", err); werr != nil {
		return werr
	}
	if out := errorOutput(err); out != "" {
		_, werr := fmt.Fprintln(r.w, out)
		return werr
	}
	return nil
}
