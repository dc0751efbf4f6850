package errors

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ToJSON renders diagnostics as a JSON array for `ejsc compile
// --diagnostics-format json`, consumed by editors/CI. Built incrementally
// with sjson rather than encoding/json so the shape matches the rest of the
// CLI's ad hoc JSON.
func ToJSON(diags []Diagnostic) (string, error) {
	doc := "[]"
	var err error
	for _, d := range diags {
		entry := map[string]any{
			"severity": d.Severity.String(),
			"file":     d.File,
			"line":     d.Line,
			"column":   d.Column,
			"message":  d.Message,
		}
		if doc, err = sjson.Set(doc, "-1", entry); err != nil {
			return "", err
		}
	}
	return doc, nil
}

// FromJSON parses a diagnostics array previously written by ToJSON, used
// by round-trip tests.
func FromJSON(doc string) []Diagnostic {
	var out []Diagnostic
	result := gjson.Parse(doc)
	result.ForEach(func(_, value gjson.Result) bool {
		out = append(out, Diagnostic{
			Severity: severityFromString(value.Get("severity").String()),
			File:     value.Get("file").String(),
			Line:     int(value.Get("line").Int()),
			Column:   int(value.Get("column").Int()),
			Message:  value.Get("message").String(),
		})
		return true
	})
	return out
}

func severityFromString(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "fatal error":
		return SeverityFatal
	default:
		return SeverityError
	}
}
