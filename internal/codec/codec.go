// Package codec encodes multi-valued attributes into the scalar string cells
// of the meeting table.
//
// Set cells are comma-joined tokens ("a,b,c"). Map cells hold one
// "|key:v1,v2" block per non-empty entry, concatenated with no separator.
// Member values and keys must not contain ',', ':' or '|'.
package codec

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	setSep   = ","
	entrySep = "|"
	keySep   = ":"
)

// Set is an unordered collection of tokens.
type Set map[string]struct{}

// NewSet builds a Set from the given values, dropping blanks.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Add(v string) { s[v] = struct{}{} }

func (s Set) Remove(v string) { delete(s, v) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Map associates a key (a group name) with a set of members.
type Map map[string]Set

// Clone returns a deep copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// EncodeSet joins the members with ',' in sorted order, omitting empties.
func EncodeSet(s Set) string {
	return strings.Join(s.Sorted(), setSep)
}

// DecodeSet splits a cell on ',', trimming tokens and dropping empty ones.
func DecodeSet(cell string) Set {
	if cell == "" {
		return Set{}
	}
	return NewSet(strings.Split(cell, setSep)...)
}

// EncodeMap serializes the non-empty entries as "|key:v1,v2" blocks ordered
// by key.
func EncodeMap(m Map) string {
	keys := make([]string, 0, len(m))
	for k, members := range m {
		if k == "" || len(members) == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(entrySep)
		b.WriteString(k)
		b.WriteString(keySep)
		b.WriteString(EncodeSet(m[k]))
	}
	return b.String()
}

// DecodeMap parses a map cell. Blocks without ':' and blocks whose member
// list decodes to an empty set are skipped. A repeated key keeps the last
// block.
func DecodeMap(cell string) Map {
	m := Map{}
	if cell == "" {
		return m
	}
	for _, entry := range strings.Split(cell, entrySep) {
		if entry == "" {
			continue
		}
		key, members, ok := strings.Cut(entry, keySep)
		if !ok {
			continue
		}
		set := DecodeSet(members)
		if len(set) == 0 {
			continue
		}
		m[key] = set
	}
	return m
}

// ValidToken reports whether v can be stored as a set member or map key
// without breaking the cell grammar.
func ValidToken(v string) bool {
	if v == "" || strings.TrimSpace(v) != v {
		return false
	}
	return !strings.ContainsAny(v, setSep+keySep+entrySep)
}
