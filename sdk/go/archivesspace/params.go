// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Params is an insertion-ordered set of request parameters.
//
// A nil *Params is a valid empty parameter set for all read-only
// methods.
type Params struct {
	m *orderedmap.OrderedMap[string, interface{}]
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{m: orderedmap.New[string, interface{}]()}
}

// ParamsFromMap returns a parameter set with the entries of m, in
// sorted key order.
func ParamsFromMap(m map[string]interface{}) *Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := NewParams()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set adds or replaces the value for key and returns p. Replacing
// an existing key does not change its position.
func (p *Params) Set(key string, value interface{}) *Params {
	if p.m == nil {
		p.m = orderedmap.New[string, interface{}]()
	}
	p.m.Set(key, value)
	return p
}

// Get returns the value for key.
func (p *Params) Get(key string) (interface{}, bool) {
	if p == nil || p.m == nil {
		return nil, false
	}
	return p.m.Get(key)
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil || p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Keys returns the parameter names in insertion order.
func (p *Params) Keys() []string {
	if p.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns the parameters as an unordered map.
func (p *Params) Map() map[string]interface{} {
	m := make(map[string]interface{}, p.Len())
	if p.Len() == 0 {
		return m
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		m[pair.Key] = pair.Value
	}
	return m
}

// Clone returns a shallow copy of p. Clone of a nil *Params returns
// an empty set.
func (p *Params) Clone() *Params {
	cp := NewParams()
	if p.Len() == 0 {
		return cp
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		cp.m.Set(pair.Key, pair.Value)
	}
	return cp
}

// MergeParams returns a new parameter set containing every key of
// defaults followed by the keys of overrides that are not in
// defaults. On collision the value from overrides wins. Neither
// argument is modified.
func MergeParams(defaults, overrides *Params) *Params {
	merged := defaults.Clone()
	if overrides.Len() == 0 {
		return merged
	}
	for pair := overrides.m.Oldest(); pair != nil; pair = pair.Next() {
		merged.m.Set(pair.Key, pair.Value)
	}
	return merged
}

// Encode returns the parameters as a URL query string, preserving
// insertion order.
//
// Strings and numbers are sent as-is, booleans as "true"/"false",
// slices as repeated "key[]" entries (the form ArchivesSpace expects
// for array parameters like resolve[]), nil values are omitted, and
// anything else is sent as JSON.
func (p *Params) Encode() (string, error) {
	if p.Len() == 0 {
		return "", nil
	}
	var buf strings.Builder
	add := func(k, v string) {
		if buf.Len() > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(k))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(v))
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			continue
		}
		rv := reflect.ValueOf(pair.Value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			key := pair.Key
			if !strings.HasSuffix(key, "[]") {
				key += "[]"
			}
			for i := 0; i < rv.Len(); i++ {
				s, err := scalarString(rv.Index(i).Interface())
				if err != nil {
					return "", fmt.Errorf("param %q: %w", pair.Key, err)
				}
				add(key, s)
			}
			continue
		}
		s, err := scalarString(pair.Value)
		if err != nil {
			return "", fmt.Errorf("param %q: %w", pair.Key, err)
		}
		add(pair.Key, s)
	}
	return buf.String(), nil
}

func scalarString(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	j, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(j), nil
}

// MarshalJSON encodes p as a JSON object with keys in insertion
// order.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p.Len() > 0 {
		for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
			if buf.Len() > 1 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(pair.Key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", pair.Key, err)
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseParams converts command line style "key=value" arguments to a
// parameter set. Values that parse as JSON (numbers, true/false,
// arrays, objects) are decoded; anything else is kept as a string.
func ParseParams(args []string) (*Params, error) {
	p := NewParams()
	for _, arg := range args {
		i := strings.IndexByte(arg, '=')
		if i < 1 {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		k, raw := arg[:i], arg[i+1:]
		var v interface{}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil || dec.More() {
			v = raw
		}
		p.Set(k, v)
	}
	return p, nil
}
