package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/charmbracelet/glamour"
	"github.com/pterm/pterm"
)

// terminalRenderer styles output with lipgloss, tables with pterm and
// markdown with glamour
type terminalRenderer struct {
	w io.Writer
}

func (r *terminalRenderer) RenderRecords(records []types.InstallationRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(r.w, GetStyle("Muted").Render("No packages installed."))
		return err
	}

	data := pterm.TableData{{"Name", "Version", "Installed", "Files", "Prefix"}}
	for _, rec := range records {
		data = append(data, []string{
			GetStyle("Name").Render(rec.Name),
			GetStyle("Version").Render(rec.Version),
			rec.InstalledAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(len(rec.Files)),
			GetStyle("Path").Render(rec.Prefix),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, table)
	return err
}

func (r *terminalRenderer) RenderInstall(reports []InstallReport) error {
	for _, rep := range reports {
		id := GetStyle("Name").Render(rep.Name) + " " + GetStyle("Version").Render(rep.Version)
		switch {
		case rep.Err != nil && rep.Warning == nil:
			fmt.Fprintf(r.w, "%s %s\n", GetStyle("Error").Render("✗"), id)
			fmt.Fprintf(r.w, "  %s\n", GetStyle("Error").Render(rep.Err.Error()))
			if out := errorOutput(rep.Err); out != "" {
				fmt.Fprintln(r.w, GetStyle("Muted").PaddingLeft(4).Render(out))
			}
		case rep.Warning != nil:
			fmt.Fprintf(r.w, "%s %s %s\n", GetStyle("Warning").Render("!"), id, GetStyle("Path").Render(rep.Prefix))
			fmt.Fprintf(r.w, "  %s\n", GetStyle("Warning").Render(rep.Warning.Error()))
			if rep.Removed {
				fmt.Fprintf(r.w, "  %s\n", GetStyle("Warning").Render("removed: strict verification is enabled"))
			}
		default:
			fmt.Fprintf(r.w, "%s %s %s\n", GetStyle("Success").Render("✓"), id, GetStyle("Path").Render(rep.Prefix))
		}
	}
	return nil
}

func (r *terminalRenderer) RenderInfo(info FormulaInfo) error {
	md := InfoMarkdown(info)
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		_, err = fmt.Fprint(r.w, md)
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		out = md
	}
	_, err = fmt.Fprint(r.w, out)
	return err
}

func (r *terminalRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, msg)
	return err
}

func (r *terminalRenderer) RenderError(err error) error {
	code := errors.GetErrorCode(err)
	fmt.Fprintf(r.w, "%s %s\n", GetStyle("Error").Render("Error:"), err.Error())
	if out := errorOutput(err); out != "" {
		fmt.Fprintln(r.w, GetStyle("Muted").PaddingLeft(2).Render(out))
	}
	_, werr := fmt.Fprintln(r.w, GetStyle("Muted").Render(fmt.Sprintf("(%s, exit %d)", code, errors.ExitCode(err))))
	return werr
}
