// Package ui renders command results as rich terminal output, plain text or
// JSON.
package ui

import (
	"io"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// InstallReport is the outcome of one install attempt as shown to the user
type InstallReport struct {
	Name    string
	Version string
	Prefix  string
	Err     error

	// Warning is a self test failure on a package that stayed installed
	Warning error

	// Removed is set when strict verification uninstalled the package
	Removed bool
}

// FormulaInfo describes a formula and, when installed, its record
type FormulaInfo struct {
	Formula   types.Formula
	Installed *types.InstallationRecord
}

// Renderer is the common interface for all output renderers
type Renderer interface {
	RenderRecords(records []types.InstallationRecord) error
	RenderInstall(reports []InstallReport) error
	RenderInfo(info FormulaInfo) error
	RenderMessage(msg string) error
	RenderError(err error) error
}

// NewRenderer creates a renderer for format. FormatAuto inspects w.
func NewRenderer(format Format, w io.Writer) (Renderer, error) {
	switch format {
	case FormatAuto:
		return NewRenderer(DetectFormat(w), w)
	case FormatTerminal:
		return &terminalRenderer{w: w}, nil
	case FormatText:
		return &textRenderer{w: w}, nil
	case FormatJSON:
		return &jsonRenderer{w: w}, nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown format: %v", format)
	}
}

// errorOutput returns the captured build or test output attached to err
func errorOutput(err error) string {
	for _, key := range []string{errors.DetailOutput, errors.DetailActual} {
		if v, ok := errors.GetDetail(err, key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
