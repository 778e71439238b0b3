package logic

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedMapping = errors.New("malformed filter mapping")

// Mapping associates a source answer with the choices it leaves available.
type Mapping struct {
	entries []entry
}

type entry struct {
	value   string
	choices []string
}

// ParseMapping reads "value1:choice1,choice2;value2:choice3". Blank segments are ignored.
func ParseMapping(s string) (Mapping, error) {
	var m Mapping
	seen := map[string]bool{}
	for _, segment := range strings.Split(s, ";") {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		value, choices, ok := strings.Cut(segment, ":")
		if !ok {
			return Mapping{}, fmt.Errorf("%w: segment %q has no ':'", ErrMalformedMapping, segment)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return Mapping{}, fmt.Errorf("%w: segment %q has no source value", ErrMalformedMapping, segment)
		}
		if seen[value] {
			return Mapping{}, fmt.Errorf("%w: duplicate source value %q", ErrMalformedMapping, value)
		}
		seen[value] = true
		m.entries = append(m.entries, entry{value, SplitOptions(choices)})
	}
	return m, nil
}

// Choices returns the choices allowed for a source answer, and whether the mapping mentions it.
func (m Mapping) Choices(value string) ([]string, bool) {
	value = strings.TrimSpace(value)
	for _, e := range m.entries {
		if e.value == value {
			return e.choices, true
		}
	}
	return nil, false
}

func (m Mapping) Len() int {
	return len(m.entries)
}

// Format renders the mapping in canonical form.
func (m Mapping) Format() string {
	segments := make([]string, len(m.entries))
	for i, e := range m.entries {
		segments[i] = e.value + ":" + strings.Join(e.choices, ",")
	}
	return strings.Join(segments, ";")
}

// SplitOptions splits a comma separated option list, dropping blanks.
func SplitOptions(s string) []string {
	opts := []string{}
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	return opts
}
