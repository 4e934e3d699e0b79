// Package ixgest enumerates the input files of a batch, applies the optional
// XSLT preprocessing step and watches the input folder for new files.
package ixgest

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/teranos/tpu/errors"
)

// WorkItem is one input file of a batch
type WorkItem struct {
	// Seq numbers the file within its run, starting at 1
	Seq int
	// Path is the full path of the input file
	Path string
}

// Name returns the file name without its directory
func (w WorkItem) Name() string {
	return filepath.Base(w.Path)
}

// Scan lists the regular files directly inside dir, sorted by name and
// numbered from 1.
func Scan(dir string) ([]WorkItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read watch folder %s", dir),
			"check resource.watchfolder")
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return Items(paths, 1), nil
}

// Items numbers paths in name order starting at first
func Items(paths []string, first int) []WorkItem {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	items := make([]WorkItem, len(sorted))
	for i, p := range sorted {
		items[i] = WorkItem{Seq: first + i, Path: p}
	}
	return items
}
