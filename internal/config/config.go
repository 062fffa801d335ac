// Package config loads fdx2fountain settings from TOML files.
//
// Keys are flag names. Tables are flattened with "-", so
//
//	[log]
//	level = "info"
//
// sets --log-level. Flags given on the command line win over the file.
package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
)

// DefaultPaths are searched in order; missing files are skipped and later
// files override earlier ones.
var DefaultPaths = []string{
	"/etc/fdx2fountain.toml",
	"~/.config/fdx2fountain/config.toml",
	"./fdx2fountain.toml",
}

// Resolver resolves kong flags from a flattened TOML document.
type Resolver struct {
	values map[string]any
}

var _ kong.Resolver = (*Resolver)(nil)

// Loader is a kong.ConfigurationLoader for TOML.
func Loader(r io.Reader) (kong.Resolver, error) {
	return Load(r)
}

// Load decodes TOML from r.
func Load(r io.Reader) (*Resolver, error) {
	var tree map[string]any
	if _, err := toml.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	values := make(map[string]any)
	flatten("", tree, values)
	return &Resolver{values: values}, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			key = prefix + "-" + key
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// Keys returns the flattened keys, sorted.
func (r *Resolver) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects keys that match no flag of app.
func (r *Resolver) Validate(app *kong.Application) error {
	known := make(map[string]bool)
	collectFlags(app.Node, known)

	var unknown []string
	for _, k := range r.Keys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("config: unknown keys %s", strings.Join(unknown, ", "))
	}
	return nil
}

func collectFlags(node *kong.Node, known map[string]bool) {
	if node == nil {
		return
	}
	for _, f := range node.Flags {
		known[f.Name] = true
	}
	for _, child := range node.Children {
		collectFlags(child, known)
	}
}

// Resolve returns the configured value of flag, or nil when unset.
func (r *Resolver) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	v, ok := r.values[flag.Name]
	if !ok {
		return nil, nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), nil
	default:
		return fmt.Sprint(v), nil
	}
}
