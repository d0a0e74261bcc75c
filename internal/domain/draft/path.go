package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownSection = errors.New("draft: unknown section")
	ErrUnknownField   = errors.New("draft: unknown field")
	ErrNotObject      = errors.New("draft: value is not an object")
	ErrNotArray       = errors.New("draft: value is not an array")
	ErrInvalidValue   = errors.New("draft: invalid value")
)

// MaxPadding is the number of empty elements a single element write may add
// past the end of an array.
const MaxPadding = 8

// Path addresses a value inside a Document. Field is a dot separated chain
// of object keys below the section ("vitals" or "past_medical_history.conditions").
// SubField names a key of the object found at Field (or at Field[Index]).
type Path struct {
	Section  Section `json:"section"`
	Field    string  `json:"field,omitempty"`
	SubField string  `json:"sub_field,omitempty"`
	Index    *int    `json:"index,omitempty"`
}

// At returns a copy of p addressing element i.
func (p Path) At(i int) Path {
	p.Index = &i
	return p
}

// Sub returns a copy of p addressing key name of the object at p.
func (p Path) Sub(name string) Path {
	p.SubField = name
	return p
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(string(p.Section))
	if p.Field != "" {
		b.WriteByte('.')
		b.WriteString(p.Field)
	}
	if p.Index != nil {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(*p.Index))
		b.WriteByte(']')
	}
	if p.SubField != "" {
		b.WriteByte('.')
		b.WriteString(p.SubField)
	}
	return b.String()
}

func (p Path) validate() error {
	if !p.Section.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, p.Section)
	}
	if p.Field == "" {
		return fmt.Errorf("%w: empty field", ErrUnknownField)
	}
	for _, seg := range strings.Split(p.Field, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q", ErrUnknownField, p.Field)
		}
	}
	if p.Index != nil && *p.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidValue, *p.Index)
	}
	return nil
}

// Op names a mutation primitive.
type Op string

const (
	OpReplaceSection  Op = "replace_section"
	OpSetField        Op = "set_field"
	OpSetElementField Op = "set_element_field"
	OpAppend          Op = "append"
	OpRemove          Op = "remove"
	OpReset           Op = "reset"
)

// Mutation is the wire form of a single primitive call.
type Mutation struct {
	Op Op `json:"op"`
	Path
	Value json.RawMessage `json:"value,omitempty"`
}
