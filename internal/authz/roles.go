package authz

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var rolesYAML []byte

type roleFile struct {
	Roles map[string]roleSpec `yaml:"roles"`
}

type roleSpec struct {
	All         bool     `yaml:"all"`
	Permissions []string `yaml:"permissions"`
}

// Set is an effective permission set.
type Set map[Permission]struct{}

// Has reports membership.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions sorted for stable output.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Table maps role names to permission bundles.
type Table struct {
	bundles map[string]Set
}

var defaultTable = mustLoad(rolesYAML)

// Default returns the built-in role table.
func Default() *Table { return defaultTable }

// Load parses a role table and rejects unknown permission tokens.
func Load(data []byte) (*Table, error) {
	var file roleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse role table: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("role table is empty")
	}

	t := &Table{bundles: make(map[string]Set, len(file.Roles))}
	for role, def := range file.Roles {
		set := make(Set)
		if def.All {
			for _, p := range All {
				set[p] = struct{}{}
			}
		}
		for _, raw := range def.Permissions {
			p := Permission(raw)
			if !IsKnown(p) {
				return nil, fmt.Errorf("role %s: unknown permission %q", role, raw)
			}
			set[p] = struct{}{}
		}
		t.bundles[role] = set
	}
	return t, nil
}

func mustLoad(data []byte) *Table {
	t, err := Load(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Roles returns the configured role names.
func (t *Table) Roles() []string {
	out := make([]string, 0, len(t.bundles))
	for role := range t.bundles {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// IsRole reports whether role is configured.
func (t *Table) IsRole(role string) bool {
	_, ok := t.bundles[role]
	return ok
}

// Resolve returns the union of the bundles of roles. Unknown roles add nothing.
func (t *Table) Resolve(roles []string) Set {
	out := make(Set)
	for _, role := range roles {
		for p := range t.bundles[role] {
			out[p] = struct{}{}
		}
	}
	return out
}

// RolesWith returns every role whose bundle contains p.
func (t *Table) RolesWith(p Permission) []string {
	var out []string
	for role, set := range t.bundles {
		if set.Has(p) {
			out = append(out, role)
		}
	}
	sort.Strings(out)
	return out
}

// Can reports whether any of roles grants p under the default table.
func Can(roles []string, p Permission) bool {
	return defaultTable.Resolve(roles).Has(p)
}
