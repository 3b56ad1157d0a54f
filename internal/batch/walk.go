package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Walk expands root into the files to process. A regular file is returned
// as-is; a directory is walked recursively in lexical order and filtered by
// extension (case-insensitive). An empty exts list accepts every file.
func Walk(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("batch: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if matchesExt(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("batch: walk %s: %w", root, err)
	}
	return files, nil
}

// Expand walks every root and concatenates the results in argument order.
func Expand(roots []string, exts []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		found, err := Walk(root, exts)
		if err != nil {
			return files, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func matchesExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range exts {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
