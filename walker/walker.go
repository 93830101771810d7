package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDirectory reports a scan root that is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Collect lists the regular files under root. With recursive false only
// the immediate directory level is scanned. A non-empty extensions list
// restricts results to matching file suffixes; names are compared
// case-insensitively and may be given with or without the leading dot.
// Unreadable subtrees are logged and skipped rather than failing the
// whole scan.
func Collect(
	root string,
	recursive bool,
	extensions []string,
) ([]string, error) {
	const errCtx = "collecting files"

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf(
			"%s: %w: %s",
			errCtx,
			ErrNotDirectory,
			absRoot,
		)
	}

	filter := newExtensionFilter(extensions)

	var files []string
	if recursive {
		files, err = collectTree(absRoot, filter)
	} else {
		files, err = collectLevel(absRoot, filter)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return files, nil
}

// collectLevel scans a single directory level.
func collectLevel(root string, filter extensionFilter) ([]string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var files []string

	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}

		if !filter.match(de.Name()) {
			continue
		}

		files = append(files, filepath.Join(root, de.Name()))
	}

	return files, nil
}

// collectTree walks the whole subtree below root.
func collectTree(root string, filter extensionFilter) ([]string, error) {
	var files []string

	walkFn := func(pa string, de fs.DirEntry, err error) error {
		if err != nil {
			if pa == root {
				return err
			}

			// One unreadable entry must not abort the scan.
			slog.Warn(
				"skipping unreadable path",
				"path", pa,
				"error", err,
			)

			return nil
		}

		if !de.Type().IsRegular() {
			return nil
		}

		if !filter.match(de.Name()) {
			return nil
		}

		files = append(files, pa)

		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, err
	}

	return files, nil
}

// extensionFilter matches file names against a normalized suffix set. A
// nil filter admits every name.
type extensionFilter map[string]struct{}

// newExtensionFilter normalizes the extension list: lowercased, leading
// dot enforced, blanks dropped.
func newExtensionFilter(extensions []string) extensionFilter {
	if len(extensions) == 0 {
		return nil
	}

	filter := make(extensionFilter, len(extensions))

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		filter[ext] = struct{}{}
	}

	if len(filter) == 0 {
		return nil
	}

	return filter
}

// match reports whether name passes the filter.
func (ef extensionFilter) match(name string) bool {
	if ef == nil {
		return true
	}

	_, found := ef[strings.ToLower(filepath.Ext(name))]

	return found
}
