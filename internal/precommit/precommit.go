// Package precommit loads and validates pre-commit hook configuration files.
//
// The configuration is purely declarative: a list of hook source
// repositories, each pinned to a revision and naming the hooks to run.
// Cloning the sources, resolving hook ids and executing hooks against
// changed files is the pre-commit runner's job, not ours. This package
// only produces a validated, order-preserving snapshot of the file and
// rejects malformed input with enough context to fix it.
package precommit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError reports a structurally malformed configuration document:
// wrong types, missing required fields, or an empty hook list. Entry is
// the zero-based index of the offending repos entry, or -1 when the
// problem is at the document level.
type ParseError struct {
	Entry int
	Field string
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Entry < 0 {
		if e.Err != nil {
			return fmt.Sprintf("parse config: %s: %v", e.Msg, e.Err)
		}
		return fmt.Sprintf("parse config: %s", e.Msg)
	}
	return fmt.Sprintf("parse config: repos[%d]: field %q: %s", e.Entry, e.Field, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a configuration that is structurally sound but
// semantically invalid, such as duplicate hook ids within one source or
// an exclude pattern that does not compile.
type ValidationError struct {
	Entry int
	Repo  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: repos[%d] (%s): field %q: %s", e.Entry, e.Repo, e.Field, e.Msg)
}

// document is the wire shape of .pre-commit-config.yaml.
type document struct {
	Repos []Source `yaml:"repos"`
}

// Load parses a pre-commit configuration document and returns its
// sources in declared order. Hooks run in this order, so order is
// preserved exactly. The whole load fails atomically on the first
// structural problem; there is no partial result.
func Load(r io.Reader) ([]Source, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Entry: -1, Msg: "empty document"}
		}
		return nil, &ParseError{Entry: -1, Msg: "malformed YAML", Err: err}
	}
	if doc.Repos == nil {
		return nil, &ParseError{Entry: -1, Field: "repos", Msg: `missing top-level "repos" key`}
	}

	for i, src := range doc.Repos {
		if strings.TrimSpace(src.Repo) == "" {
			return nil, &ParseError{Entry: i, Field: "repo", Msg: "required field is missing or empty"}
		}
		if strings.TrimSpace(src.Rev) == "" {
			return nil, &ParseError{Entry: i, Field: "rev", Msg: "required field is missing or empty"}
		}
		if len(src.Hooks) == 0 {
			return nil, &ParseError{Entry: i, Field: "hooks", Msg: "source declares no hooks"}
		}
		for j, h := range src.Hooks {
			if strings.TrimSpace(h.ID) == "" {
				return nil, &ParseError{
					Entry: i,
					Field: "hooks",
					Msg:   fmt.Sprintf("hooks[%d]: required field \"id\" is missing or empty", j),
				}
			}
		}
	}

	return doc.Repos, nil
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	sources, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sources, nil
}

// Validate checks semantic constraints across an already-parsed source
// list: every source has at least one hook and a non-empty rev, hook ids
// are unique within their source, and exclude patterns compile. It is a
// pure check with no side effects; the first violation is returned.
func Validate(sources []Source) error {
	for i, src := range sources {
		if strings.TrimSpace(src.Rev) == "" {
			return &ValidationError{Entry: i, Repo: src.Repo, Field: "rev", Msg: "revision pin must not be empty"}
		}
		if len(src.Hooks) == 0 {
			return &ValidationError{Entry: i, Repo: src.Repo, Field: "hooks", Msg: "source declares no hooks"}
		}

		seen := make(map[string]struct{}, len(src.Hooks))
		for _, h := range src.Hooks {
			if _, dup := seen[h.ID]; dup {
				return &ValidationError{
					Entry: i,
					Repo:  src.Repo,
					Field: "id",
					Msg:   fmt.Sprintf("duplicate hook id %q", h.ID),
				}
			}
			seen[h.ID] = struct{}{}

			if h.Exclude != "" {
				if _, err := regexp.Compile(h.Exclude); err != nil {
					return &ValidationError{
						Entry: i,
						Repo:  src.Repo,
						Field: "exclude",
						Msg:   fmt.Sprintf("hook %q: invalid pattern: %v", h.ID, err),
					}
				}
			}
		}
	}
	return nil
}

// Marshal renders sources back to the configuration file format.
// Load(Marshal(s)) yields a source list equal to s.
func Marshal(sources []Source) ([]byte, error) {
	data, err := yaml.Marshal(document{Repos: sources})
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
