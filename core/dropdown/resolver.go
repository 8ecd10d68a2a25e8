package dropdown

import "strings"

// Resolver maps stored values to options. A value matches an option when it equals the option key,
// else the option ID, else (case-insensitively) the key or the label.
type Resolver struct {
	fields map[string][]Option
}

func NewResolver(fields map[string][]Option) Resolver {
	if fields == nil {
		fields = map[string][]Option{}
	}
	return Resolver{fields: fields}
}

// Has reports whether field is backed by options.
func (r Resolver) Has(field string) bool {
	return len(r.fields[field]) > 0
}

func (r Resolver) Options(field string) []Option {
	return r.fields[field]
}

func (r Resolver) Match(field, value string) (Option, bool) {
	if value == "" {
		return Option{}, false
	}
	opts := r.fields[field]
	for _, opt := range opts {
		if opt.Key == value {
			return opt, true
		}
	}
	for _, opt := range opts {
		if opt.ID != "" && opt.ID == value {
			return opt, true
		}
	}
	value = strings.TrimSpace(value)
	for _, opt := range opts {
		if strings.EqualFold(opt.Key, value) || strings.EqualFold(opt.Label, value) {
			return opt, true
		}
	}
	return Option{}, false
}

// Label returns the label of the option matching value, or value itself.
func (r Resolver) Label(field, value string) string {
	if opt, ok := r.Match(field, value); ok {
		return opt.Label
	}
	return value
}

// Key returns the key of the option matching value.
func (r Resolver) Key(field, value string) (string, bool) {
	opt, ok := r.Match(field, value)
	return opt.Key, ok
}

// Default returns the key of the first option of field.
func (r Resolver) Default(field string) string {
	if opts := r.fields[field]; len(opts) > 0 {
		return opts[0].Key
	}
	return ""
}
