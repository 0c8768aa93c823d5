// Package template resolves the small `{{data.x}}` / `{{metadata.y}}`
// expression language spec §4.8 defines for SubgraphNode.inputMapping.
// Standard-library only (strings, regexp): this is a handful of
// dotted-path substitutions, not a general templating problem, and none of
// the pack's templating-adjacent dependencies (a Jinja2 clone, seen in
// other_examples' eino go.mod) fit a micro-syntax like this without
// dragging in a full template-language dependency for a feature this small.
package template

import (
	"regexp"
	"strings"
)

// DefaultSentinel is returned for a path that cannot be resolved, per spec
// §4.8 ("missing paths resolve to a configurable sentinel, default empty
// string").
const DefaultSentinel = ""

var exprPattern = regexp.MustCompile(`^\{\{\s*(data|metadata)\.([a-zA-Z0-9_.]+)\s*\}\}$`)

// Logger receives a debug-level note when a path fails to resolve.
// Resolver.Debugf is nil-safe; set it to wire in the ambient logger.
type Logger interface {
	Debugf(format string, args ...any)
}

// Resolver evaluates template expressions against data/metadata maps.
type Resolver struct {
	// Sentinel replaces DefaultSentinel when set to a non-empty value.
	Sentinel string
	Logger   Logger
}

// NewResolver returns a Resolver using the default empty-string sentinel.
func NewResolver() *Resolver {
	return &Resolver{Sentinel: DefaultSentinel}
}

// Resolve evaluates value against data and metadata. A literal
// (non-template) value passes through unchanged; a template expression is
// replaced by the dotted-path lookup, or the sentinel if the path is
// missing.
func (r *Resolver) Resolve(value string, data, metadata map[string]any) any {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return value
	}

	root, path := m[1], m[2]
	var source map[string]any
	switch root {
	case "data":
		source = data
	case "metadata":
		source = metadata
	}

	v, ok := lookup(source, strings.Split(path, "."))
	if !ok {
		if r.Logger != nil {
			r.Logger.Debugf("template: path %q.%s not found, using sentinel", root, path)
		}
		if r.Sentinel != "" {
			return r.Sentinel
		}
		return DefaultSentinel
	}
	return v
}

// ResolveMapping applies Resolve to every value in mapping, returning the
// resolved map keyed the same way. Used by SubgraphNode.inputMapping.
func (r *Resolver) ResolveMapping(mapping map[string]string, data, metadata map[string]any) map[string]any {
	out := make(map[string]any, len(mapping))
	for k, v := range mapping {
		out[k] = r.Resolve(v, data, metadata)
	}
	return out
}

func lookup(m map[string]any, path []string) (any, bool) {
	if m == nil {
		return nil, false
	}
	cur := any(m)
	for _, segment := range path {
		asMap, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := asMap[segment]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
