// Package export выгружает список задач в JSON или CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"todo-chat/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var csvHeader = []string{
	"id", "title", "description", "status", "priority", "due_date",
	"category", "tags", "created_at", "updated_at", "completed_at",
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json or csv)", s)
}

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, bool) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".json"):
		return FormatJSON, true
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return FormatCSV, true
	}
	return "", false
}

func Write(w io.Writer, format Format, tasks []models.Task) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, tasks)
	case FormatCSV:
		return writeCSV(w, tasks)
	}
	return fmt.Errorf("unsupported format %q", format)
}

func writeJSON(w io.Writer, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// writeCSV: теги через ";", время в RFC3339, пустое completed_at даёт пустую ячейку
func writeCSV(w io.Writer, tasks []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range tasks {
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.DueDate,
			t.Category,
			strings.Join(t.Tags, ";"),
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.UpdatedAt.UTC().Format(time.RFC3339),
			completed,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
