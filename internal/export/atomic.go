// Package export writes the enriched table and its companion artifacts.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"asset-insights/internal/dataset"
)

// writeAtomic streams into a temp file next to path and renames it into
// place only when write succeeds.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// stage writes a synced temp file next to path and returns its name.
func stage(path string, write func(w io.Writer) error) (name string, err error) {
	if err := ensureDir(path); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return tmp.Name(), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

type staged struct {
	tmp, dest string
}

// Batch stages several artifacts as temp files and moves them into place
// together on Commit. Until then no destination is touched.
type Batch struct {
	files []staged
}

// Add stages one file for path.
func (b *Batch) Add(path string, write func(w io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	b.files = append(b.files, staged{tmp: tmp, dest: path})
	return nil
}

// CSV stages the enriched table as CSV.
func (b *Batch) CSV(path string, rows []dataset.EnrichedRow) error {
	return b.Add(path, func(w io.Writer) error { return EncodeCSV(w, rows) })
}

// XLSX stages the enriched table as a workbook.
func (b *Batch) XLSX(path string, rows []dataset.EnrichedRow) error {
	return b.Add(path, func(w io.Writer) error { return EncodeXLSX(w, rows) })
}

// Audit stages the markdown audit report.
func (b *Batch) Audit(path string, r AuditReport) error {
	return b.Add(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown())
		return err
	})
}

// Commit renames every staged file into place, in the order added. Files
// not yet renamed when a rename fails are discarded.
func (b *Batch) Commit() error {
	for i, f := range b.files {
		if err := os.Rename(f.tmp, f.dest); err != nil {
			b.files = b.files[i:]
			b.Discard()
			return fmt.Errorf("rename into %s: %w", f.dest, err)
		}
	}
	b.files = nil
	return nil
}

// Discard removes every staged file. It is safe to call after Commit.
func (b *Batch) Discard() {
	for _, f := range b.files {
		os.Remove(f.tmp)
	}
	b.files = nil
}
