package medsave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes from a JSON string, number, bool or null. The API is
// inconsistent about quoting ids and measurements.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("medsave: cannot use %s as a string", b)
	default:
		*f = FlexString(b)
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexInt decodes from a JSON number, a numeric string or null.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	str := strings.TrimSpace(string(s))
	if str == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("medsave: %q is not a number", str)
	}
	*f = FlexInt(n)
	return nil
}

// FlexBool decodes from true/false, 1/0 and their quoted forms. Anything
// else non-empty is treated as true.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "", "0", "false", "no":
		*f = false
	default:
		*f = true
	}
	return nil
}
