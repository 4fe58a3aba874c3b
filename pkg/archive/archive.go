// Package archive turns command-line inputs (zip exports, directories and
// single files) into normalize.Documents.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/riskscope/pkg/normalize"
)

var (
	ErrNotZip     = errors.New("not a zip archive")
	ErrUnsafePath = errors.New("archive entry escapes extraction directory")
)

// maxEntrySize bounds a single extracted file.
const maxEntrySize = 512 << 20

// Extract unpacks zipPath into dest, or into a fresh temp directory when dest
// is empty, and returns the directory used. A temp directory it created is
// removed again if extraction fails.
func Extract(zipPath, dest string) (_ string, err error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return "", fmt.Errorf("%s: %w", zipPath, ErrNotZip)
		}
		return "", fmt.Errorf("failed to open zip file: %w", err)
	}
	defer r.Close()

	if dest == "" {
		dest, err = os.MkdirTemp("", "riskscope-")
		if err != nil {
			return "", err
		}
		tmp := dest
		defer func() {
			if err != nil {
				os.RemoveAll(tmp)
			}
		}()
	} else if err := os.MkdirAll(dest, 0755); err != nil {
		return "", err
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}

	for _, f := range r.File {
		if err := extractFile(f, root); err != nil {
			return "", err
		}
	}
	slog.Debug("extracted archive", "zip", zipPath, "dir", root, "entries", len(r.File))
	return root, nil
}

func extractFile(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if !f.Mode().IsRegular() {
		slog.Warn("skipping non-regular archive entry", "entry", f.Name)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("archive entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return nil
}

// Collect walks dir in lexical order and loads every .xml and .json file.
// Files with other extensions are returned in skipped.
func Collect(dir string) ([]normalize.Document, []string, error) {
	var docs []normalize.Document
	var skipped []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		format, ok := normalize.FormatForPath(path)
		if !ok {
			slog.Warn("skipping unsupported file format", "file", rel)
			skipped = append(skipped, rel)
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, normalize.Document{Name: rel, Format: format, Content: content})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return docs, skipped, nil
}

// Inputs is the result of Load.
type Inputs struct {
	Documents []normalize.Document
	Skipped   []string
	tempDirs  []string
}

// Cleanup removes directories created while extracting archives.
func (in *Inputs) Cleanup() {
	for _, d := range in.tempDirs {
		os.RemoveAll(d)
	}
	in.tempDirs = nil
}

// Load resolves each path: zip archives are extracted to a temp directory,
// directories are walked, and single .xml/.json files are read directly.
func Load(paths []string) (*Inputs, error) {
	in := &Inputs{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			in.Cleanup()
			return nil, err
		}

		switch {
		case info.IsDir():
			err = in.addDir(p)
		case strings.EqualFold(filepath.Ext(p), ".zip"):
			var dir string
			dir, err = Extract(p, "")
			if err == nil {
				in.tempDirs = append(in.tempDirs, dir)
				err = in.addDir(dir)
			}
		default:
			err = in.addFile(p)
		}
		if err != nil {
			in.Cleanup()
			return nil, err
		}
	}
	return in, nil
}

func (in *Inputs) addDir(dir string) error {
	docs, skipped, err := Collect(dir)
	if err != nil {
		return err
	}
	in.Documents = append(in.Documents, docs...)
	in.Skipped = append(in.Skipped, skipped...)
	return nil
}

func (in *Inputs) addFile(path string) error {
	format, ok := normalize.FormatForPath(path)
	if !ok {
		slog.Warn("skipping unsupported file format", "file", path)
		in.Skipped = append(in.Skipped, path)
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	in.Documents = append(in.Documents, normalize.Document{Name: path, Format: format, Content: content})
	return nil
}
