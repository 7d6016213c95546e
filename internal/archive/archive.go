// Package archive creates and extracts the pipeline's zip artifacts: the
// compressed-stage archive and the full backup archives.
package archive

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath indicates an archive entry would escape the extraction root.
var ErrUnsafePath = errors.New("archive entry escapes extraction root")

// Dir names a source directory and the prefix its files get inside the
// archive. An empty prefix places the files at the archive root.
type Dir struct {
	Path   string
	Prefix string
}

// Create writes a zip archive at dest containing the given directories.
// Missing source directories are skipped so a partially failed run can still
// be archived. Entries are deflated at the maximum compression level.
func Create(dest string, dirs ...Dir) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dest, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	writer.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, dir := range dirs {
		if _, statErr := os.Stat(dir.Path); statErr != nil {
			continue
		}
		if addErr := addDir(writer, dir); addErr != nil {
			writer.Close()
			return fmt.Errorf("failed to archive %s: %w", dir.Path, addErr)
		}
	}

	if closeErr := writer.Close(); closeErr != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", dest, closeErr)
	}
	return out.Close()
}

// addDir walks one source directory and writes its regular files into the
// archive under the directory's prefix.
func addDir(writer *zip.Writer, dir Dir) error {
	return filepath.WalkDir(dir.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(dir.Path, path)
		if relErr != nil {
			return relErr
		}
		name := filepath.ToSlash(rel)
		if dir.Prefix != "" {
			name = dir.Prefix + "/" + name
		}

		file, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		defer file.Close()

		dst, createErr := writer.Create(name)
		if createErr != nil {
			return createErr
		}
		_, copyErr := io.Copy(dst, file)
		return copyErr
	})
}

// Extract unpacks a zip archive into destDir, refusing entries that would
// escape it.
func Extract(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if extractErr := extractEntry(entry, destDir); extractErr != nil {
			return fmt.Errorf("failed to extract %s: %w", entry.Name, extractErr)
		}
	}
	return nil
}

// extractEntry writes one archive entry under destDir.
func extractEntry(entry *zip.File, destDir string) error {
	cleaned := filepath.Clean(filepath.Join(destDir, filepath.FromSlash(entry.Name)))
	if cleaned != destDir && !strings.HasPrefix(cleaned, destDir+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(cleaned, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(cleaned)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}
