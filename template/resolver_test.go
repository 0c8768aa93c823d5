package template

import "testing"

func TestResolveLiteralPassesThrough(t *testing.T) {
	r := NewResolver()
	got := r.Resolve("plain-value", nil, nil)
	if got != "plain-value" {
		t.Fatalf("expected literal passthrough, got %v", got)
	}
}

func TestResolveDataPath(t *testing.T) {
	r := NewResolver()
	data := map[string]any{"user": map[string]any{"name": "ada"}}
	got := r.Resolve("{{data.user.name}}", data, nil)
	if got != "ada" {
		t.Fatalf("expected ada, got %v", got)
	}
}

func TestResolveMetadataPath(t *testing.T) {
	r := NewResolver()
	metadata := map[string]any{"traceId": "t-1"}
	got := r.Resolve("{{metadata.traceId}}", nil, metadata)
	if got != "t-1" {
		t.Fatalf("expected t-1, got %v", got)
	}
}

func TestResolveMissingPathReturnsSentinel(t *testing.T) {
	r := NewResolver()
	got := r.Resolve("{{data.missing.path}}", map[string]any{}, nil)
	if got != DefaultSentinel {
		t.Fatalf("expected default sentinel, got %v", got)
	}
}

func TestResolveCustomSentinel(t *testing.T) {
	r := &Resolver{Sentinel: "N/A"}
	got := r.Resolve("{{data.missing}}", map[string]any{}, nil)
	if got != "N/A" {
		t.Fatalf("expected custom sentinel, got %v", got)
	}
}

func TestResolveMappingAppliesEachValue(t *testing.T) {
	r := NewResolver()
	data := map[string]any{"query": "weather"}
	mapping := map[string]string{"q": "{{data.query}}", "fixed": "literal"}
	out := r.ResolveMapping(mapping, data, nil)
	if out["q"] != "weather" || out["fixed"] != "literal" {
		t.Fatalf("unexpected resolved mapping: %+v", out)
	}
}
