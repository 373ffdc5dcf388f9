// Package validate checks request bodies against the JSON schemas embedded
// under schemas/.
package validate

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	Login           = "login"
	ResetRequest    = "reset_request"
	ResetConfirm    = "reset_confirm"
	CandidateAction = "candidate_action"
	Decision        = "decision"
	Scorecard       = "scorecard"
	BusinessProfile = "business_profile"
	SupportTicket   = "support_ticket"
)

// Problem is one schema violation.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error lists every violation of a document.
type Error struct {
	Schema   string
	Problems []Problem
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Path == "" || p.Path == "/" {
			msgs = append(msgs, p.Message)
			continue
		}
		msgs = append(msgs, strings.TrimPrefix(p.Path, "/")+": "+p.Message)
	}
	return "invalid " + strings.ReplaceAll(e.Schema, "_", " ") + ": " + strings.Join(msgs, "; ")
}

// Validator holds the compiled schemas. It is read-only after New and safe
// for concurrent use.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(entries))}
	for _, e := range entries {
		b, err := fs.ReadFile(schemaFS, path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = rs
	}
	return v, nil
}

// Names returns the loaded schema names, sorted.
func (v *Validator) Names() []string {
	out := make([]string, 0, len(v.schemas))
	for n := range v.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate checks data against the named schema. Violations are returned
// as *Error; malformed JSON is a plain error.
func (v *Validator) Validate(ctx context.Context, name string, data []byte) error {
	rs, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid json")
	}
	keyErrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if len(keyErrs) == 0 {
		return nil
	}
	verr := &Error{Schema: name}
	for _, ke := range keyErrs {
		verr.Problems = append(verr.Problems, Problem{Path: ke.PropertyPath, Message: ke.Message})
	}
	return verr
}
