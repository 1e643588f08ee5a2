package utils

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"
)

const DefaultKeyTemplate = "NPPES_Data_Dissemination_{{.Month}}_{{.Year}}.csv"

// KeyData is what an object key template can reference.
type KeyData struct {
	Month    string
	Year     string
	Date     string
	FileName string
}

// RenderObjectKey renders tmpl for the given time and payload name and joins
// it onto prefix. The prefix is used verbatim, as a key prefix and not a folder.
func RenderObjectKey(prefix, tmpl, fileName string, now time.Time) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultKeyTemplate
	}
	t, err := template.New("key").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid object key template %q: %w", tmpl, err)
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, KeyData{
		Month:    now.Format("January"),
		Year:     now.Format("2006"),
		Date:     now.Format("2006-01-02"),
		FileName: path.Base(fileName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render object key: %w", err)
	}

	key := buf.String()
	if key == "" {
		return "", fmt.Errorf("object key template %q rendered an empty key", tmpl)
	}
	return prefix + key, nil
}
