package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Filter categories
const (
	CategoryIdol     = "idol"
	CategoryGroup    = "group"
	CategoryUploader = "uploader"
	CategoryFiletype = "filetype"
	CategoryTag      = "tag"
	CategorySort     = "sort"
	CategoryDate     = "date"
	CategoryDateMode = "dateMode"
)

// reservedCategories hold UI state rather than record fields and never
// become filter clauses.
var reservedCategories = map[string]bool{
	CategorySort:     true,
	CategoryDate:     true,
	CategoryDateMode: true,
}

// FilterValue is one selected value of a category. Which field is set decides
// how it compares: by name, by code, or as an option carrying a raw value.
type FilterValue struct {
	Name   string `json:"name,omitempty"`
	Code   string `json:"code,omitempty"`
	Option any    `json:"option,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// clause renders the value against field, or reports false when the value has
// no comparable attribute.
func (v FilterValue) clause(field string) (string, bool) {
	switch {
	case v.Name != "":
		return fmt.Sprintf(`%s.name?="%s"`, field, escape(v.Name)), true
	case v.Code != "":
		return fmt.Sprintf(`%s.code?="%s"`, field, escape(v.Code)), true
	case truthy(v.Option):
		return fmt.Sprintf(`%s?="%s"`, field, escape(stringify(v.Value))), true
	default:
		return "", false
	}
}

// Label returns the human-readable form of the value
func (v FilterValue) Label() string {
	switch {
	case v.Name != "":
		return v.Name
	case v.Code != "":
		return v.Code
	default:
		return stringify(v.Value)
	}
}

type entry struct {
	key string
	raw json.RawMessage
}

// Selection is the persisted filter selection. Keys keep the order they have
// in the stored blob so the built expression is stable across runs.
type Selection struct {
	entries []entry
}

// ParseSelection decodes a stored selection blob. An empty blob is an empty
// selection.
func ParseSelection(data []byte) (*Selection, error) {
	sel := &Selection{}
	if len(bytes.TrimSpace(data)) == 0 {
		return sel, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse filters: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to parse filters: expected object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse filters: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("failed to parse filters: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse filters: %w", err)
		}
		sel.put(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse filters: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("failed to parse filters: trailing data")
	}
	return sel, nil
}

// MarshalJSON encodes the selection preserving key order
func (s *Selection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(e.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Keys returns the category keys in stored order
func (s *Selection) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.key
	}
	return keys
}

// IsEmpty reports whether no category is present
func (s *Selection) IsEmpty() bool {
	return len(s.entries) == 0
}

func (s *Selection) find(key string) int {
	for i, e := range s.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

func (s *Selection) put(key string, raw json.RawMessage) {
	if i := s.find(key); i >= 0 {
		s.entries[i].raw = raw
		return
	}
	s.entries = append(s.entries, entry{key: key, raw: raw})
}

// Values returns the object values stored under key. Non-array categories and
// non-object elements yield nothing.
func (s *Selection) Values(key string) []FilterValue {
	i := s.find(key)
	if i < 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(s.entries[i].raw, &elems); err != nil {
		return nil
	}
	values := make([]FilterValue, 0, len(elems))
	for _, el := range elems {
		var v FilterValue
		if err := json.Unmarshal(el, &v); err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// SortValue returns the value of the sort choice, accepting an object or a
// one-element array
func (s *Selection) SortValue() string {
	i := s.find(CategorySort)
	if i < 0 {
		return ""
	}
	var choice FilterValue
	if err := json.Unmarshal(s.entries[i].raw, &choice); err == nil {
		return stringify(choice.Value)
	}
	if values := s.Values(CategorySort); len(values) > 0 {
		return stringify(values[0].Value)
	}
	return ""
}

// DateRange returns the two stored date bounds, if exactly two are present
func (s *Selection) DateRange() (from, to string, ok bool) {
	i := s.find(CategoryDate)
	if i < 0 {
		return "", "", false
	}
	var bounds []string
	if err := json.Unmarshal(s.entries[i].raw, &bounds); err != nil || len(bounds) != 2 {
		return "", "", false
	}
	return bounds[0], bounds[1], true
}

// Add appends v to the category, skipping values with the same label
func (s *Selection) Add(key string, v FilterValue) error {
	values := s.Values(key)
	for _, existing := range values {
		if existing.Label() == v.Label() {
			return nil
		}
	}
	return s.setValues(key, append(values, v))
}

// Remove drops values of the category whose label matches
func (s *Selection) Remove(key, label string) error {
	if s.find(key) < 0 {
		return nil
	}
	values := s.Values(key)
	kept := values[:0]
	for _, v := range values {
		if v.Label() != label {
			kept = append(kept, v)
		}
	}
	return s.setValues(key, kept)
}

// Clear drops the category entirely; with no key it drops every category
func (s *Selection) Clear(key string) {
	if key == "" {
		s.entries = nil
		return
	}
	if i := s.find(key); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

// SetSort stores the sort choice, e.g. "liked" or "recent"
func (s *Selection) SetSort(value string) error {
	raw, err := json.Marshal(FilterValue{Name: value, Value: value})
	if err != nil {
		return err
	}
	s.put(CategorySort, raw)
	return nil
}

// SetDateRange stores an explicit date range
func (s *Selection) SetDateRange(from, to string) error {
	raw, err := json.Marshal([]string{from, to})
	if err != nil {
		return err
	}
	s.put(CategoryDate, raw)
	return nil
}

func (s *Selection) setValues(key string, values []FilterValue) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	s.put(key, raw)
	return nil
}

// escape makes a user value safe inside a double-quoted filter literal
func escape(v string) string {
	return literalEscaper.Replace(v)
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
