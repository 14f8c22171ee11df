package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Keys of the DatiJSON payload that mirror the prospect's assignment.
const (
	KeyPropertySlug = "propertySlug"
	KeyPropertyName = "propertyName"
	KeyFormState    = "formState"
	KeyModel        = "modello"
)

// Assign points the prospect at prop, or detaches it when prop is nil, and
// rewrites the denormalized property copies held in DatiJSON.
func (p *Prospect) Assign(prop *Property) error {
	slug, name := "", ""
	if prop != nil {
		id := prop.ID
		p.PropertyID = &id
		slug, name = prop.Slug, prop.DisplayName()
	} else {
		p.PropertyID = nil
	}
	p.Property = prop
	raw, err := RewriteAssignment(p.DatiJSON, slug, name)
	if err != nil {
		return err
	}
	p.DatiJSON = raw
	return nil
}

// Dati decodes DatiJSON as an object. ok is false when the payload is empty
// or not a JSON object.
func (p *Prospect) Dati() (map[string]any, bool) {
	return decodeObject(p.DatiJSON)
}

// RewriteAssignment sets propertySlug and propertyName at the top level of the
// payload and propertySlug inside formState, which may be an object or a JSON
// encoded string. Payloads that are not objects are returned unchanged.
func RewriteAssignment(raw datatypes.JSON, slug, name string) (datatypes.JSON, error) {
	obj, ok := decodeObject(raw)
	if !ok {
		return raw, nil
	}
	obj[KeyPropertySlug] = slug
	obj[KeyPropertyName] = name

	switch fs := obj[KeyFormState].(type) {
	case map[string]any:
		rewriteFormState(fs, slug, name)
	case string:
		if inner, ok := decodeObject([]byte(fs)); ok {
			rewriteFormState(inner, slug, name)
			b, err := json.Marshal(inner)
			if err != nil {
				return nil, fmt.Errorf("encode formState: %w", err)
			}
			obj[KeyFormState] = string(b)
		}
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode datiJson: %w", err)
	}
	return datatypes.JSON(b), nil
}

func rewriteFormState(fs map[string]any, slug, name string) {
	fs[KeyPropertySlug] = slug
	if _, ok := fs[KeyPropertyName]; ok {
		fs[KeyPropertyName] = name
	}
}

func decodeObject(raw []byte) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
