// Package contextfile discovers the per-project LUCIUS.md context file by
// walking from a directory toward the filesystem root. Its content is folded
// into the system prompt so the model knows project conventions.
package contextfile

import (
	"os"
	"path/filepath"
)

// Name is the context file looked for in each ancestor directory.
const Name = "LUCIUS.md"

// Find walks from start upward and returns the path of the nearest context
// file. ok is false when no ancestor carries one.
func Find(start string) (path string, ok bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, Name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load returns the content of the nearest context file, or "" when none
// exists. A file that exists but cannot be read is an error; absence is not.
func Load(start string) (string, error) {
	path, ok := Find(start)
	if !ok {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
