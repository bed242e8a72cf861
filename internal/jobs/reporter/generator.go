package reporter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Generator renders report/export documents and returns the produced
// file path.
type Generator interface {
	Generate(ctx context.Context, name, format string, header []string, rows [][]string) (string, error)
}

// FileGenerator writes documents into a local export directory as csv or
// json. Anything else the platform serves (object storage upload, signed
// URLs) happens downstream of the returned path.
type FileGenerator struct {
	dir string
}

// NewFileGenerator creates a FileGenerator rooted at dir.
func NewFileGenerator(dir string) *FileGenerator {
	return &FileGenerator{dir: dir}
}

// Generate writes name.<format> under the export directory.
func (g *FileGenerator) Generate(ctx context.Context, name, format string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	switch format {
	case "", "csv":
		return g.writeCSV(name, header, rows)
	case "json":
		return g.writeJSON(name, header, rows)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func (g *FileGenerator) writeCSV(name string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(g.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write export rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}
	return path, nil
}

func (g *FileGenerator) writeJSON(name string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(g.dir, name+".json")

	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(row) {
				record[key] = row[i]
			}
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
