package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entity is one brace-delimited block of the entities lump. Keys keep the
// order they first appeared in; a repeated key keeps its first position and
// its last value.
type Entity struct {
	keys   []string
	values map[string]string
}

func (e *Entity) set(key, value string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value for key.
func (e Entity) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Keys returns the entity's keys in source order.
func (e Entity) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

func (e Entity) Len() int { return len(e.keys) }

// ClassName returns the classname, or "" if the entity has none.
func (e Entity) ClassName() string {
	return e.values["classname"]
}

func (e Entity) TargetName() (string, bool) {
	return e.Get("targetname")
}

// Origin returns the raw origin string ("x y z"), unparsed.
func (e Entity) Origin() (string, bool) {
	return e.Get("origin")
}

// MarshalJSON encodes the entity as a flat JSON object.
func (e Entity) MarshalJSON() ([]byte, error) {
	if e.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.values)
}

// ParseOrigin converts an origin value into three numbers.
func ParseOrigin(s string) ([3]float64, error) {
	var out [3]float64
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return out, fmt.Errorf("origin %q: want 3 components, got %d", s, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, fmt.Errorf("origin %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// ParseEntities decodes the entities lump. The text ends at the first NUL.
// Each line inside a block contributes its first two quoted strings as a
// key/value pair; quoted text is taken verbatim and may contain braces.
func ParseEntities(data []byte) ([]Entity, error) {
	data = nullTerminated(data)

	var (
		entities []Entity
		current  *Entity
		line     []string
	)

	flush := func() {
		if current != nil && len(line) >= 2 {
			current.set(line[0], line[1])
		}
		line = line[:0]
	}

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '"':
			// Quotes only delimit strings inside a block; stray ones between
			// blocks must not hide the next brace.
			if current == nil {
				continue
			}
			end := bytes.IndexByte(data[i+1:], '"')
			if end < 0 {
				return nil, &UnbalancedBracesError{Offset: i, Reason: "unterminated quoted string"}
			}
			line = append(line, DecodeLossy(data[i+1:i+1+end]))
			i += end + 1
		case '\n':
			flush()
		case '{':
			if current != nil {
				return nil, &UnbalancedBracesError{Offset: i, Reason: "'{' inside an open entity"}
			}
			current = &Entity{}
			line = line[:0]
		case '}':
			if current == nil {
				return nil, &UnbalancedBracesError{Offset: i, Reason: "'}' without an open entity"}
			}
			flush()
			entities = append(entities, *current)
			current = nil
		}
	}

	if current != nil {
		return nil, &UnbalancedBracesError{Offset: len(data), Reason: "end of text inside an open entity"}
	}
	return entities, nil
}
