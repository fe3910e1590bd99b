package scanner

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params is an ordered set of query parameters. Keys keep their first insertion
// position; setting an existing key replaces its value in place.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from alternating key/value arguments
func NewParams(kv ...interface{}) *Params {
	p := &Params{values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		p.Set(key, kv[i+1])
	}
	return p
}

// Set stores a string or numeric value
func (p *Params) Set(key string, value interface{}) *Params {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = formatValue(value)
	return p
}

// Get returns the value stored for key
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Len returns the number of parameters
func (p *Params) Len() int {
	return len(p.keys)
}

// Encode renders the parameters as a query string in insertion order
func (p *Params) Encode() string {
	var sb strings.Builder
	for i, key := range p.keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.values[key]))
	}
	return sb.String()
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
