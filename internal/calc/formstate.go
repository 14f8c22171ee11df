package calc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormState is the raw content of the calculator form as saved with a
// prospect: control values keyed by control id plus the dynamic lists.
type FormState struct {
	Fields                map[string]any `json:"fields"`
	FixedExtras           []FixedExtra   `json:"fixedExtras"`
	DeviceCosts           []Entry        `json:"deviceCosts"`
	OptionalExtras        []Entry        `json:"optionalExtras"`
	IncludeOptionalExtras bool           `json:"includeOptionalExtras"`
	PropertySlug          string         `json:"propertySlug,omitempty"`
	PropertyName          string         `json:"propertyName,omitempty"`
}

// FixedExtra is an additional monthly utility line.
type FixedExtra struct {
	Label string `json:"label"`
	Value Value  `json:"value"`
}

// Entry is a named amount entered by the user (device or optional extra).
type Entry struct {
	Name   string `json:"name"`
	Amount Value  `json:"amount"`
}

// Value is a raw control value. It decodes from JSON strings, numbers,
// booleans and null and always encodes as a string.
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Value(str)
	case s == "true" || s == "false":
		*v = Value(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("calc: unsupported value %s", s)
		}
		*v = Value(n.String())
	}
	return nil
}

// Float parses the value as a number; see ParseNumber.
func (v Value) Float() float64 { return ParseNumber(string(v)) }

// ParseNumber reads user-entered numeric text. The first comma is taken as a
// decimal separator. Anything malformed or non-finite yields 0.
func ParseNumber(s string) float64 {
	f, _ := parseFinite(s)
	return f
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Has reports whether the form carried the control at all.
func (fs FormState) Has(id string) bool {
	_, ok := fs.Fields[id]
	return ok
}

// Text returns the control value as text.
func (fs FormState) Text(id string) string {
	switch v := fs.Fields[id].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Num returns the control value as a number, 0 when missing or malformed.
func (fs FormState) Num(id string) float64 {
	if v, ok := fs.Fields[id].(float64); ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return ParseNumber(fs.Text(id))
}

// Bool returns a checkbox value, def when the control is missing.
func (fs FormState) Bool(id string, def bool) bool {
	switch v := fs.Fields[id].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		case "false", "off", "0", "no", "":
			return false
		}
	case float64:
		return v != 0
	}
	return def
}

// ErrNoFormState is returned when a payload carries no recognizable form state.
var ErrNoFormState = errors.New("calc: no form state")

// ParseFormState decodes either a bare form state or a saved prospect payload
// holding one under "formState" (as an object or a JSON encoded string).
func ParseFormState(raw []byte) (FormState, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return FormState{}, fmt.Errorf("calc: decode form state: %w", err)
	}
	if inner, ok := probe["formState"]; ok {
		var s string
		if err := json.Unmarshal(inner, &s); err == nil {
			inner = json.RawMessage(s)
		}
		return ParseFormState(inner)
	}
	if _, ok := probe["fields"]; !ok {
		return FormState{}, ErrNoFormState
	}
	var fs FormState
	if err := json.Unmarshal(raw, &fs); err != nil {
		return FormState{}, fmt.Errorf("calc: decode form state: %w", err)
	}
	if fs.Fields == nil {
		fs.Fields = map[string]any{}
	}
	return fs, nil
}
