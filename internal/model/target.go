package model

import (
	"fmt"
	"strings"
)

// TargetKind discriminates the three reviewable target shapes.
type TargetKind string

const (
	KindGrid      TargetKind = "grid_key"
	KindComponent TargetKind = "component_key"
	KindEnum      TargetKind = "enum_key"
)

// ReviewTarget identifies what is being reviewed: one product's field, a shared
// component property, or a canonical enum value. Exactly one of Grid, Component,
// Enum is set, selected by Kind.
type ReviewTarget struct {
	Kind      TargetKind    `json:"kind"`
	Grid      *GridKey      `json:"grid,omitempty"`
	Component *ComponentKey `json:"component,omitempty"`
	Enum      *EnumKey      `json:"enum,omitempty"`
}

// GridKey addresses a single product's field.
type GridKey struct {
	Category    string `json:"category"`
	ProductID   string `json:"product_id"`
	Field       string `json:"field"`
	FieldSlotID string `json:"field_slot_id,omitempty"`
}

// ComponentKey addresses a property shared by every product linking the
// component, or the component's identity fields (__name, __maker, __links,
// __aliases).
type ComponentKey struct {
	Category      string `json:"category"`
	ComponentType string `json:"component_type"`
	Name          string `json:"name"`
	Maker         string `json:"maker"`
	Property      string `json:"property"`
	ValueSlotID   string `json:"value_slot_id,omitempty"`
	IdentityID    string `json:"identity_id,omitempty"`
}

// EnumKey addresses one canonical enum member shared by every product whose
// field equals that value.
type EnumKey struct {
	Category    string `json:"category"`
	Field       string `json:"field"`
	Value       string `json:"value"`
	ListValueID string `json:"list_value_id,omitempty"`
}

// NewGridTarget builds a grid_key target.
func NewGridTarget(category, productID, field, fieldSlotID string) ReviewTarget {
	return ReviewTarget{Kind: KindGrid, Grid: &GridKey{
		Category: category, ProductID: productID, Field: field, FieldSlotID: fieldSlotID,
	}}
}

// NewComponentTarget builds a component_key target.
func NewComponentTarget(category, componentType, name, maker, property string) ReviewTarget {
	return ReviewTarget{Kind: KindComponent, Component: &ComponentKey{
		Category: category, ComponentType: componentType, Name: name, Maker: maker, Property: property,
	}}
}

// NewEnumTarget builds an enum_key target.
func NewEnumTarget(category, field, value string) ReviewTarget {
	return ReviewTarget{Kind: KindEnum, Enum: &EnumKey{
		Category: category, Field: field, Value: NormValue(value),
	}}
}

// Category returns the category the target belongs to regardless of shape.
func (t ReviewTarget) Category() string {
	switch t.Kind {
	case KindGrid:
		return t.Grid.Category
	case KindComponent:
		return t.Component.Category
	case KindEnum:
		return t.Enum.Category
	}
	return ""
}

// Field returns the field or property key the target points at.
func (t ReviewTarget) Field() string {
	switch t.Kind {
	case KindGrid:
		return t.Grid.Field
	case KindComponent:
		return t.Component.Property
	case KindEnum:
		return t.Enum.Field
	}
	return ""
}

// IdentityTuple returns the unique lookup key for the target. Every
// KeyReviewState row is keyed by this string, so all three shapes share one
// state table. New shapes only need a new case here; the lane-transition logic
// never inspects the tuple.
func (t ReviewTarget) IdentityTuple() string {
	switch t.Kind {
	case KindGrid:
		g := t.Grid
		return joinKey("grid", g.Category, g.ProductID, g.Field, g.FieldSlotID)
	case KindComponent:
		c := t.Component
		return joinKey("component", c.Category, c.ComponentType, keyToken(c.Name), keyToken(c.Maker), c.Property, c.ValueSlotID, c.IdentityID)
	case KindEnum:
		e := t.Enum
		return joinKey("enum", e.Category, e.Field, keyToken(e.Value), e.ListValueID)
	}
	return ""
}

// Validate checks that the shape matching Kind is populated with its required
// identifying parts.
func (t ReviewTarget) Validate() error {
	switch t.Kind {
	case KindGrid:
		if t.Grid == nil || t.Grid.Category == "" || t.Grid.ProductID == "" || t.Grid.Field == "" {
			return fmt.Errorf("grid target requires category, product_id and field")
		}
	case KindComponent:
		if t.Component == nil || t.Component.Category == "" || t.Component.ComponentType == "" || t.Component.Name == "" || t.Component.Property == "" {
			return fmt.Errorf("component target requires category, component_type, name and property")
		}
	case KindEnum:
		if t.Enum == nil || t.Enum.Category == "" || t.Enum.Field == "" || t.Enum.Value == "" {
			return fmt.Errorf("enum target requires category, field and value")
		}
	default:
		return fmt.Errorf("unknown target kind %q", t.Kind)
	}
	return nil
}

// IsIdentityProperty reports whether a component property key names an identity
// field (name, maker, links, aliases) rather than a spec property. Identity
// keys carry a double-underscore prefix.
func IsIdentityProperty(property string) bool {
	return strings.HasPrefix(property, "__")
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func keyToken(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
