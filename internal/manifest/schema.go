package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaCUE constrains the decoded YAML document. Validation happens
// against the raw document, before unit construction, so authors get
// schema errors with field paths.
const schemaCUE = `
#Unit: {
	seq:      int & >0
	kind:     "structural" | "data"
	name?:    string
	forward:  string & !=""
	reverse:  string & !=""
	depends?: [...string & =~"^.+:[0-9]+$"]
}

#ChangeSet: {
	namespace: string & !=""
	units: [...#Unit]
}

changesets: [...#ChangeSet]
`

// ValidationError is one schema violation in a manifest document.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// validateDocument unifies the decoded YAML document with the embedded
// schema and collects every violation.
func validateDocument(doc any) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return []ValidationError{{Path: "schema", Message: err.Error()}}
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return []ValidationError{{Message: fmt.Sprintf("encode document: %v", err)}}
	}

	unified := schema.Unify(value)
	err := unified.Validate(cue.Concrete(true), cue.Final())
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		path := ""
		if p := e.Path(); len(p) > 0 {
			path = joinPath(p)
		}
		out = append(out, ValidationError{Path: path, Message: e.Error()})
	}
	return out
}

func joinPath(parts []string) string {
	path := ""
	for i, p := range parts {
		if i > 0 {
			path += "."
		}
		path += p
	}
	return path
}
