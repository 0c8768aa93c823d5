package emit

import "context"

// SanitizeConfig controls which metadata keys survive on an Event before
// publication. If Include is non-empty, only those keys pass the
// whitelist stage; every key then passes through the Exclude blacklist,
// applied second. Filtering with the same config twice yields the same
// result as filtering once (spec testable property 10): the blacklist
// never reintroduces a key the whitelist already dropped.
type SanitizeConfig struct {
	Include []string
	Exclude []string
}

// DefaultSanitizeExclude is the preset blacklist of commonly-sensitive
// metadata keys.
var DefaultSanitizeExclude = []string{
	"password", "apiKey", "token", "secret", "sessionToken",
	"accessToken", "refreshToken", "authorization", "credential", "privateKey",
}

// DefaultSanitizeConfig applies only the preset blacklist; no whitelist
// restriction.
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{Exclude: DefaultSanitizeExclude}
}

// Sanitize returns a new metadata map with the whitelist applied first
// (if Include is set), then the blacklist. The input map is never
// mutated.
func (c SanitizeConfig) Sanitize(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}

	whitelisted := meta
	if len(c.Include) > 0 {
		allowed := make(map[string]bool, len(c.Include))
		for _, k := range c.Include {
			allowed[k] = true
		}
		whitelisted = make(map[string]interface{}, len(meta))
		for k, v := range meta {
			if allowed[k] {
				whitelisted[k] = v
			}
		}
	}

	excluded := make(map[string]bool, len(c.Exclude))
	for _, k := range c.Exclude {
		excluded[k] = true
	}

	out := make(map[string]interface{}, len(whitelisted))
	for k, v := range whitelisted {
		if !excluded[k] {
			out[k] = v
		}
	}
	return out
}

// SanitizeEvent returns a copy of event with its Meta filtered through c.
func (c SanitizeConfig) SanitizeEvent(event Event) Event {
	event.Meta = c.Sanitize(event.Meta)
	return event
}

// SanitizingBus wraps a Bus and runs every event through a SanitizeConfig
// before forwarding it, so a publisher (runner.Runner, resume.Resumer) gets
// filtered metadata on the wire without having to call Sanitize itself at
// every call site.
type SanitizingBus struct {
	Bus    Bus
	Config SanitizeConfig
}

// NewSanitizingBus wraps bus with config. A nil bus is valid and makes Emit
// a no-op, mirroring the nil-safety callers already rely on for Bus itself.
func NewSanitizingBus(bus Bus, config SanitizeConfig) *SanitizingBus {
	return &SanitizingBus{Bus: bus, Config: config}
}

// Emit implements Bus: sanitizes event.Meta, then forwards to the wrapped
// Bus if one is set.
func (s *SanitizingBus) Emit(event Event) {
	if s.Bus == nil {
		return
	}
	s.Bus.Emit(s.Config.SanitizeEvent(event))
}

// EmitBatch implements Bus: sanitizes every event's Meta, then forwards the
// batch to the wrapped Bus if one is set.
func (s *SanitizingBus) EmitBatch(ctx context.Context, events []Event) error {
	if s.Bus == nil {
		return nil
	}
	sanitized := make([]Event, len(events))
	for i, event := range events {
		sanitized[i] = s.Config.SanitizeEvent(event)
	}
	return s.Bus.EmitBatch(ctx, sanitized)
}

// Flush implements Bus by flushing the wrapped Bus, if one is set.
func (s *SanitizingBus) Flush(ctx context.Context) error {
	if s.Bus == nil {
		return nil
	}
	return s.Bus.Flush(ctx)
}
