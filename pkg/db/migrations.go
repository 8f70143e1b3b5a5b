package db

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// PendingMigrations returns the .sql files in dir that are not yet in applied, in filename order
func PendingMigrations(fsys fs.FS, dir string, applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || applied[name] {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending, nil
}

// ReadMigration returns the contents of one migration file
func ReadMigration(fsys fs.FS, dir, filename string) (string, error) {
	content, err := fs.ReadFile(fsys, path.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", filename, err)
	}
	return string(content), nil
}
