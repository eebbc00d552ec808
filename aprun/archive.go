package aprun

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteArchive streams the run's output folder to w as a ZIP archive. Entry
// names are relative to root with forward slashes, so the archive unpacks
// into the same category layout on any platform.
func WriteArchive(w io.Writer, root string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			// Keep empty category folders visible in the archive.
			_, err := zw.Create(name + "/")
			return err
		}

		entry, err := zw.Create(name)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("[WriteArchive] %s: %w", root, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("[WriteArchive] close: %w", err)
	}
	return nil
}
