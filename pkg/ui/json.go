package ui

import (
	"encoding/json"
	"io"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// jsonRenderer emits one JSON document per call
type jsonRenderer struct {
	w io.Writer
}

type jsonRecord struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Prefix       string    `json:"prefix"`
	Files        []string  `json:"files"`
	SourceURL    string    `json:"source_url"`
	SourceHash   string    `json:"source_hash"`
	Algorithm    string    `json:"hash_algorithm"`
	Dependencies []string  `json:"dependencies,omitempty"`
	InstalledAt  time.Time `json:"installed_at"`
}

type jsonError struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	ExitCode int                    `json:"exit_code"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

type jsonInstall struct {
	Name    string     `json:"name"`
	Version string     `json:"version"`
	Prefix  string     `json:"prefix,omitempty"`
	Error   *jsonError `json:"error,omitempty"`
	Warning *jsonError `json:"warning,omitempty"`
	Removed bool       `json:"removed,omitempty"`
}

func toJSONRecord(rec types.InstallationRecord) jsonRecord {
	return jsonRecord{
		Name:         rec.Name,
		Version:      rec.Version,
		Prefix:       rec.Prefix,
		Files:        rec.Files,
		SourceURL:    rec.SourceURL,
		SourceHash:   rec.SourceHash,
		Algorithm:    string(rec.HashAlgorithm),
		Dependencies: rec.Dependencies,
		InstalledAt:  rec.InstalledAt,
	}
}

func toJSONError(err error) *jsonError {
	if err == nil {
		return nil
	}
	return &jsonError{
		Code:     string(errors.GetErrorCode(err)),
		Message:  err.Error(),
		ExitCode: errors.ExitCode(err),
		Details:  errors.GetErrorDetails(err),
	}
}

func (r *jsonRenderer) encode(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *jsonRenderer) RenderRecords(records []types.InstallationRecord) error {
	out := make([]jsonRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, toJSONRecord(rec))
	}
	return r.encode(out)
}

func (r *jsonRenderer) RenderInstall(reports []InstallReport) error {
	out := make([]jsonInstall, 0, len(reports))
	for _, rep := range reports {
		item := jsonInstall{
			Name:    rep.Name,
			Version: rep.Version,
			Prefix:  rep.Prefix,
			Warning: toJSONError(rep.Warning),
			Removed: rep.Removed,
		}
		if rep.Warning == nil {
			item.Error = toJSONError(rep.Err)
		}
		out = append(out, item)
	}
	return r.encode(out)
}

func (r *jsonRenderer) RenderInfo(info FormulaInfo) error {
	f := info.Formula
	doc := map[string]interface{}{
		"name":         f.Name,
		"version":      f.Version,
		"homepage":     f.Homepage,
		"url":          f.URL,
		"hash":         f.Hash,
		"algorithm":    string(f.Algorithm),
		"dependencies": dependencyList(f.Dependencies),
		"install":      f.Install,
	}
	if info.Installed != nil {
		doc["installed"] = toJSONRecord(*info.Installed)
	}
	return r.encode(doc)
}

func (r *jsonRenderer) RenderMessage(msg string) error {
	return r.encode(map[string]string{"message": msg})
}

func (r *jsonRenderer) RenderError(err error) error {
	return r.encode(map[string]interface{}{"error": toJSONError(err)})
}
