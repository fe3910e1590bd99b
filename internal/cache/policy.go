package cache

import "strings"

// Policy decides which explorer calls may be stored. Every call is cacheable unless its
// "module.action" pair was disabled in configuration.
type Policy struct {
	disabled map[string]bool
}

// NewPolicy creates a Policy that never caches the given "module.action" pairs.
// A bare module name disables every action of that module.
func NewPolicy(disabled []string) *Policy {
	p := &Policy{disabled: make(map[string]bool, len(disabled))}
	for _, d := range disabled {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			p.disabled[d] = true
		}
	}
	return p
}

// IsCacheable reports whether a response for module/action may be cached
func (p *Policy) IsCacheable(module, action string) bool {
	if p == nil || len(p.disabled) == 0 {
		return true
	}
	module = strings.ToLower(module)
	if p.disabled[module] {
		return false
	}
	return !p.disabled[module+"."+strings.ToLower(action)]
}
