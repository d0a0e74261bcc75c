package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// tree is the generic JSON form of a Document the path primitives operate on.
type tree map[string]any

func toTree(d Document) (tree, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var t tree
	if err := decodeJSON(raw, &t); err != nil {
		return nil, fmt.Errorf("decode document tree: %w", err)
	}
	return t, nil
}

// document decodes t back into the typed form. Keys that no section struct
// declares are rejected, as are values of the wrong JSON type.
func (t tree) document() (Document, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var d Document
	if err := dec.Decode(&d); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return Document{}, fmt.Errorf("%w: %v", ErrUnknownField, err)
		}
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return d, nil
}

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// toValue converts a Go value (or raw JSON) into its generic JSON form.
func toValue(v any) (any, error) {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
	var out any
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out, nil
}

func (t tree) section(s Section) (map[string]any, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	sec, ok := t[string(s)].(map[string]any)
	if !ok {
		sec = map[string]any{}
		t[string(s)] = sec
	}
	return sec, nil
}

// parent walks p.Field and returns the object holding its last segment.
func (t tree) parent(p Path) (map[string]any, string, error) {
	if err := p.validate(); err != nil {
		return nil, "", err
	}
	cur, err := t.section(p.Section)
	if err != nil {
		return nil, "", err
	}
	segs := strings.Split(p.Field, ".")
	for _, seg := range segs[:len(segs)-1] {
		v, ok := cur[seg]
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownField, p)
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrNotObject, p)
		}
		cur = next
	}
	key := segs[len(segs)-1]
	if _, ok := cur[key]; !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownField, p)
	}
	return cur, key, nil
}

func (t tree) replaceSection(s Section, partial map[string]any) error {
	sec, err := t.section(s)
	if err != nil {
		return err
	}
	for k, v := range partial {
		if _, ok := sec[k]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s, k)
		}
		val, err := toValue(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", s, k, err)
		}
		sec[k] = val
	}
	return nil
}

func (t tree) setNested(p Path, value any) error {
	parent, key, err := t.parent(p)
	if err != nil {
		return err
	}
	val, err := toValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	if p.SubField == "" {
		parent[key] = val
		return nil
	}
	obj, err := asObject(parent[key], p)
	if err != nil {
		return err
	}
	obj[p.SubField] = val
	parent[key] = obj
	return nil
}

func (t tree) setElement(p Path, value any) error {
	if p.Index == nil {
		return fmt.Errorf("%w: %s: index required", ErrInvalidValue, p)
	}
	if p.SubField == "" {
		return fmt.Errorf("%w: %s: sub field required", ErrUnknownField, p)
	}
	parent, key, err := t.parent(p)
	if err != nil {
		return err
	}
	val, err := toValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	arr, err := asArray(parent[key], p)
	if err != nil {
		return err
	}
	if *p.Index > len(arr)+MaxPadding {
		return fmt.Errorf("%w: %s: index past end of %d elements", ErrInvalidValue, p, len(arr))
	}
	for len(arr) <= *p.Index {
		arr = append(arr, map[string]any{})
	}
	elem, err := asObject(arr[*p.Index], p)
	if err != nil {
		return err
	}
	elem[p.SubField] = val
	arr[*p.Index] = elem
	parent[key] = arr
	return nil
}

func (t tree) appendItem(p Path, item any) error {
	parent, key, err := t.parent(p)
	if err != nil {
		return err
	}
	val, err := toValue(item)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	arr, err := asArray(parent[key], p)
	if err != nil {
		return err
	}
	parent[key] = append(arr, val)
	return nil
}

// removeItem reports whether an element was removed. A missing array or an
// out of range index leaves the tree untouched.
func (t tree) removeItem(p Path) (bool, error) {
	if p.Index == nil {
		return false, fmt.Errorf("%w: %s: index required", ErrInvalidValue, p)
	}
	parent, key, err := t.parent(p)
	if err != nil {
		return false, err
	}
	arr, ok := parent[key].([]any)
	if !ok || *p.Index >= len(arr) {
		return false, nil
	}
	parent[key] = append(arr[:*p.Index:*p.Index], arr[*p.Index+1:]...)
	return true, nil
}

func asObject(v any, p Path) (map[string]any, error) {
	switch x := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return x, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotObject, p)
}

func asArray(v any, p Path) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return x, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotArray, p)
}
