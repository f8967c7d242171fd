// Package sender drives the per-target send pipeline: connect, offer
// each file, honor the receiver's resume decision, stream adaptively
// chunked (optionally compressed) data, and fan out across many
// targets concurrently (spec.md §4.6).
package sender

import (
	"fmt"
	"os"
	"path/filepath"

	"fileferry/internal/engine"
)

// File describes one local file queued for transfer: its filesystem
// path and the relative path advertised to the receiver.
type File struct {
	Path         string
	RelativePath string
	Size         uint64
}

// Plan builds the File list for a set of input paths: each path that
// is a plain file becomes one File; each directory is walked
// recursively, with RelativePath rooted at the directory's own name
// unless flat is true, in which case every file is offered under its
// base name alone (spec.md §4.6's --flat flag).
func Plan(paths []string, flat bool) ([]File, error) {
	var files []File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("sender: %w: %v", engine.ErrIO, err)
		}
		if !info.IsDir() {
			files = append(files, File{Path: p, RelativePath: filepath.Base(p), Size: uint64(info.Size())})
			continue
		}

		root := filepath.Dir(p)
		walkErr := filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if flat {
				rel = filepath.Base(path)
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			files = append(files, File{Path: path, RelativePath: filepath.ToSlash(rel), Size: uint64(fi.Size())})
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("sender: %w: %v", engine.ErrIO, walkErr)
		}
	}
	return files, nil
}
