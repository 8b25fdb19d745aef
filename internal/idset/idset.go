// Package idset holds the product identifier set used for favorites and
// purchase history, together with its comma-delimited column encoding.
package idset

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
)

const delimiter = ","

// Set is an unordered collection of distinct product identifiers. The zero
// value is an empty set ready for reads; use New or Of before adding.
type Set map[int64]struct{}

// New returns an empty set.
func New() Set {
	return make(Set)
}

// Of returns a set holding ids. Duplicates collapse.
func Of(ids ...int64) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Decode parses a stored column value. Blank input decodes to the empty set.
// A token that is not a non-negative integer yields a MALFORMED_SET error.
func Decode(raw string) (Set, error) {
	s := New()
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}
	for _, tok := range strings.Split(raw, delimiter) {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, apperrors.MalformedSet(raw, err)
		}
		if id < 0 {
			return nil, apperrors.MalformedSet(raw, fmt.Errorf("negative identifier %d", id))
		}
		s[id] = struct{}{}
	}
	return s, nil
}

// Encode renders s in canonical form: ascending, comma-joined, no spaces.
func Encode(s Set) string {
	if len(s) == 0 {
		return ""
	}
	ids := s.Sorted()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, delimiter)
}

// Add inserts id into the encoded set raw. The returned flag is false when
// id was already present, in which case raw is returned unchanged.
func Add(raw string, id int64) (string, bool, error) {
	s, err := Decode(raw)
	if err != nil {
		return "", false, err
	}
	if !s.Add(id) {
		return raw, false, nil
	}
	return Encode(s), true, nil
}

// Remove deletes id from the encoded set raw and reports whether it was found.
func Remove(raw string, id int64) (string, bool, error) {
	s, err := Decode(raw)
	if err != nil {
		return "", false, err
	}
	if !s.Remove(id) {
		return raw, false, nil
	}
	return Encode(s), true, nil
}

// Has reports whether id is a member of s.
func (s Set) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Add inserts id and reports whether it was new.
func (s Set) Add(id int64) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s Set) Remove(id int64) bool {
	if !s.Has(id) {
		return false
	}
	delete(s, id)
	return true
}

// Union adds every id in ids to s and returns how many were new.
func (s Set) Union(ids ...int64) int {
	added := 0
	for _, id := range ids {
		if s.Add(id) {
			added++
		}
	}
	return added
}

// Difference returns the members of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := New()
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether s and other hold the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order. It never returns nil.
func (s Set) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// MarshalJSON renders the set as a sorted JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
