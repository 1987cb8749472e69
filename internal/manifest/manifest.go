package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// File is one decoded manifest document.
type File struct {
	Path       string          `yaml:"-"`
	ChangeSets []ChangeSetDecl `yaml:"changesets"`
}

// ChangeSetDecl declares one namespace's linear unit sequence.
type ChangeSetDecl struct {
	Namespace string     `yaml:"namespace"`
	Units     []UnitDecl `yaml:"units"`
}

// UnitDecl declares one SQL-backed unit. Forward and Reverse each hold
// a single SQL statement; Depends uses the "namespace:seq" form.
type UnitDecl struct {
	Seq     int      `yaml:"seq"`
	Kind    string   `yaml:"kind"`
	Name    string   `yaml:"name"`
	Forward string   `yaml:"forward"`
	Reverse string   `yaml:"reverse"`
	Depends []string `yaml:"depends"`
}

// Load reads, schema-validates and decodes one manifest file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	// Validate the raw document first so schema violations surface
	// with field paths instead of decoder quirks.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if violations := validateDocument(doc); len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.Error()
		}
		return nil, fmt.Errorf("manifest %s is invalid:\n  %s", path, strings.Join(msgs, "\n  "))
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	f.Path = path
	return &f, nil
}

// LoadDir loads every .yaml/.yml manifest in dir, in name order.
func LoadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifest files found in %s", dir)
	}
	sort.Strings(paths)

	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// ChangeSets constructs executable change sets from the declarations.
// Units must be declared in sequence order starting at 1; each unit's
// operations execute the declared SQL through the structural handle.
func ChangeSets(files ...*File) ([]*unit.ChangeSet, error) {
	var sets []*unit.ChangeSet
	for _, f := range files {
		for _, decl := range f.ChangeSets {
			s := unit.NewChangeSet(decl.Namespace)
			for i, ud := range decl.Units {
				if ud.Seq != i+1 {
					return nil, fmt.Errorf("manifest %s: namespace %q unit at index %d declares seq %d, want %d",
						f.Path, decl.Namespace, i, ud.Seq, i+1)
				}
				deps := make([]unit.ID, 0, len(ud.Depends))
				for _, ref := range ud.Depends {
					id, err := unit.ParseID(ref)
					if err != nil {
						return nil, fmt.Errorf("manifest %s: unit %s:%d: %w", f.Path, decl.Namespace, ud.Seq, err)
					}
					deps = append(deps, id)
				}
				s.Add(unit.Kind(ud.Kind), ud.Name, sqlOp(ud.Forward), sqlOp(ud.Reverse), deps...)
			}
			sets = append(sets, s)
		}
	}
	return sets, nil
}

// sqlOp wraps a single SQL statement as a unit operation.
func sqlOp(stmt string) unit.Operation {
	return func(ctx context.Context, env unit.Env) error {
		return env.Structural.Exec(ctx, stmt)
	}
}
