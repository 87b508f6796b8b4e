package puzzle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Load compiles a single puzzle definition file. The file must contain a
// top-level "puzzle" struct.
func Load(path string) (*Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse compiles a puzzle definition from CUE source. filename is used for
// error positions only.
func Parse(data []byte, filename string) (*Puzzle, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pv := v.LookupPath(cue.ParsePath("puzzle"))
	if !pv.Exists() {
		return nil, &CompileError{
			Field:   "puzzle",
			Message: "no top-level puzzle struct found",
			Pos:     v.Pos(),
		}
	}
	return CompilePuzzle(pv)
}

// LoadDir compiles every .cue file in dir, one puzzle per file, in lexical
// filename order. Puzzle names must be unique across the directory.
func LoadDir(dir string) ([]*Puzzle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("puzzle directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("puzzle directory: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}
	sort.Strings(files)

	seen := make(map[string]string)
	var puzzles []*Puzzle
	for _, name := range files {
		p, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("duplicate puzzle %q in %s (already defined in %s)", p.Name, name, prev)
		}
		seen[p.Name] = name
		puzzles = append(puzzles, p)
	}
	return puzzles, nil
}
