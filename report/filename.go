package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

type filenameData struct {
	Dataset   string
	Format    string
	Timestamp string
	Date      string
	Resource  string
}

func renderFilename(def ResolvedDefinition, req ReportRequest, now time.Time) (string, error) {
	name := def.DefaultFilename
	if name == "" {
		name = "{{.Dataset}}_{{.Timestamp}}"
	}

	data := filenameData{
		Dataset:   def.Name,
		Format:    string(req.Format),
		Timestamp: now.UTC().Format("20060102T150405Z"),
		Date:      now.UTC().Format("20060102"),
		Resource:  def.Resource,
	}

	tmpl, err := template.New("filename").Parse(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	result := strings.TrimSpace(buf.String())
	if result == "" {
		return "", fmt.Errorf("empty filename")
	}

	ext := string(req.Format)
	if !strings.HasSuffix(strings.ToLower(result), "."+ext) {
		result = result + "." + ext
	}
	return result, nil
}
