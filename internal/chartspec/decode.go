package chartspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// fields is a JSON object with its values left undecoded.
type fields map[string]json.RawMessage

func (f fields) has(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decoder reads typed values out of fields. The first error sticks and
// later reads return zero values.
type decoder struct {
	f   fields
	err error
}

func (d *decoder) fail(key string, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("field %q: expected %s", key, want)
	}
}

// lookup returns the first non-null value among keys.
func (d *decoder) lookup(keys ...string) (string, json.RawMessage, bool) {
	if d.err != nil {
		return "", nil, false
	}
	for _, k := range keys {
		if d.f.has(k) {
			return k, d.f[k], true
		}
	}
	return "", nil, false
}

func (d *decoder) str(keys ...string) string {
	key, raw, ok := d.lookup(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(key, "a string")
		return ""
	}
	return s
}

func (d *decoder) strs(key string) []string {
	_, raw, ok := d.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		d.fail(key, "a list of strings")
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (d *decoder) float(key string) *float64 {
	_, raw, ok := d.lookup(key)
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		d.fail(key, "a number")
		return nil
	}
	return &v
}

func (d *decoder) optBool(key string) *bool {
	_, raw, ok := d.lookup(key)
	if !ok {
		return nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		d.fail(key, "true or false")
		return nil
	}
	return &v
}

func (d *decoder) boolean(key string) bool {
	v := d.optBool(key)
	return v != nil && *v
}

// names reads a list of column names, or the keys of an object whose keys
// are column names. Object keys come back sorted; list order is kept with
// duplicates and empty names removed.
func (d *decoder) names(key string) []string {
	_, raw, ok := d.lookup(key)
	if !ok {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		out := make([]string, 0, len(obj))
		for k := range obj {
			if k != "" {
				out = append(out, k)
			}
		}
		sort.Strings(out)
		if len(out) == 0 {
			return nil
		}
		return out
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		d.fail(key, "a list of column names or an object")
		return nil
	}
	var out []string
	seen := make(map[string]bool, len(list))
	for _, name := range list {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func (d *decoder) font(key string) *Font {
	_, raw, ok := d.lookup(key)
	if !ok {
		return nil
	}
	var f Font
	if err := json.Unmarshal(raw, &f); err != nil {
		d.fail(key, "an object with family, size and color")
		return nil
	}
	if f.Size < 0 {
		d.fail(key, "a positive size")
		return nil
	}
	return &f
}

func (d *decoder) series(key string) Series {
	_, raw, ok := d.lookup(key)
	if !ok {
		return Series{}
	}
	var s Series
	if err := s.UnmarshalJSON(raw); err != nil {
		d.fail(key, "a column name or a list")
		return Series{}
	}
	return s
}

func (d *decoder) xy() XY {
	return XY{
		X:             d.str("x"),
		Y:             d.str("y"),
		Group:         d.str("group"),
		ColorSequence: d.strs("colorSequence"),
	}
}
