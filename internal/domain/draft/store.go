package draft

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Store holds one Document and applies the mutation primitives to it. Every
// primitive works on a copy and swaps it in only when the result decodes into
// the typed sections, so a rejected mutation leaves the document unchanged.
type Store struct {
	mu  sync.RWMutex
	doc Document
	gen uint64
}

func NewStore() *Store {
	return &Store{doc: New()}
}

// Restore rebuilds a store from a previously saved document and generation.
func Restore(doc Document, generation uint64) *Store {
	return &Store{doc: doc.Clone(), gen: generation}
}

// Document returns a deep copy of the current document.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Generation changes on every Reset. Work started before a reset compares
// generations to detect that its results no longer apply.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Clone returns an independent store with the same document and generation.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Store{doc: s.doc.Clone(), gen: s.gen}
}

// ReplaceSection shallow merges partial into section. Keys absent from
// partial keep their values.
func (s *Store) ReplaceSection(section Section, partial map[string]any) error {
	return s.mutateTree(func(t tree) error {
		return t.replaceSection(section, partial)
	})
}

// SetNestedField sets section.field to value, or section.field.subField when
// subField is not empty.
func (s *Store) SetNestedField(section Section, field string, value any, subField string) error {
	p := Path{Section: section, Field: field, SubField: subField}
	return s.mutateTree(func(t tree) error {
		return t.setNested(p, value)
	})
}

// SetArrayElementField sets subField on element index of section.field,
// padding the array with up to MaxPadding empty objects.
func (s *Store) SetArrayElementField(section Section, field string, index int, subField string, value any) error {
	p := Path{Section: section, Field: field, SubField: subField}.At(index)
	return s.mutateTree(func(t tree) error {
		return t.setElement(p, value)
	})
}

func (s *Store) AppendArrayItem(section Section, field string, item any) error {
	p := Path{Section: section, Field: field}
	return s.mutateTree(func(t tree) error {
		return t.appendItem(p, item)
	})
}

// RemoveArrayItem removes element index of section.field. Out of range
// indexes and removals that would empty a floored array are no-ops.
func (s *Store) RemoveArrayItem(section Section, field string, index int) error {
	p := Path{Section: section, Field: field}.At(index)
	return s.mutateTree(func(t tree) error {
		if floor := floorOf(p); floor > 0 {
			parent, key, err := t.parent(p)
			if err != nil {
				return err
			}
			if arr, ok := parent[key].([]any); ok && len(arr) <= floor {
				return nil
			}
		}
		_, err := t.removeItem(p)
		return err
	})
}

// Reset restores the empty template and advances the generation.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = New()
	s.gen++
}

// Update applies fn to a copy of the document and keeps the result.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.normalize(s.doc)
	s.doc = next
	return nil
}

// Apply dispatches a wire mutation to the matching primitive.
func (s *Store) Apply(m Mutation) error {
	switch m.Op {
	case OpReplaceSection:
		var partial map[string]json.RawMessage
		if err := json.Unmarshal(m.Value, &partial); err != nil || partial == nil {
			return fmt.Errorf("%w: section value must be an object", ErrNotObject)
		}
		generic := make(map[string]any, len(partial))
		for k, v := range partial {
			generic[k] = v
		}
		return s.ReplaceSection(m.Section, generic)
	case OpSetField:
		return s.SetNestedField(m.Section, m.Field, m.Value, m.SubField)
	case OpSetElementField:
		if m.Index == nil {
			return fmt.Errorf("%w: index required", ErrInvalidValue)
		}
		return s.SetArrayElementField(m.Section, m.Field, *m.Index, m.SubField, m.Value)
	case OpAppend:
		return s.AppendArrayItem(m.Section, m.Field, m.Value)
	case OpRemove:
		if m.Index == nil {
			return fmt.Errorf("%w: index required", ErrInvalidValue)
		}
		return s.RemoveArrayItem(m.Section, m.Field, *m.Index)
	case OpReset:
		s.Reset()
		return nil
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalidValue, m.Op)
}

func (s *Store) mutateTree(fn func(tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := toTree(s.doc)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	next, err := t.document()
	if err != nil {
		return err
	}
	next.normalize(s.doc)
	s.doc = next
	return nil
}

type snapshot struct {
	Generation uint64   `json:"generation"`
	Document   Document `json:"document"`
}

func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(snapshot{Generation: s.gen, Document: s.doc})
}

func (s *Store) UnmarshalJSON(data []byte) error {
	snap := snapshot{Document: New()}
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Document.normalize(New())
	s.doc = snap.Document
	s.gen = snap.Generation
	return nil
}
