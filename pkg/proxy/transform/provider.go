package transform

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Shape is the runtime shape of the body's top-level "provider" field.
type Shape int

const (
	// ShapeAbsent means the body has no "provider" key.
	ShapeAbsent Shape = iota
	// ShapeObject means "provider" is a JSON object.
	ShapeObject
	// ShapeOther means "provider" exists but is not an object (null, string, array...).
	ShapeOther
)

// String returns the shape name used in logs.
func (s Shape) String() string {
	switch s {
	case ShapeAbsent:
		return "absent"
	case ShapeObject:
		return "object"
	default:
		return "other"
	}
}

// orderAction writes order into body according to one row of the decision table.
type orderAction func(body []byte, order []string) ([]byte, error)

// providerTable is the provider.order decision table:
//
//	absent -> create {"order": [...]}
//	object -> set "order" inside the existing object, other keys kept
//	other  -> replace the value with {"order": [...]}
var providerTable = map[Shape]orderAction{
	ShapeAbsent: setProviderObject,
	ShapeObject: mergeOrder,
	ShapeOther:  setProviderObject,
}

// ProviderShape classifies the "provider" field of a JSON object body.
func ProviderShape(body []byte) Shape {
	v := gjson.GetBytes(body, providerField)
	switch {
	case !v.Exists():
		return ShapeAbsent
	case v.IsObject():
		return ShapeObject
	default:
		return ShapeOther
	}
}

// SetProviderOrder sets provider.order to order using the decision table.
func SetProviderOrder(body []byte, order []string) ([]byte, error) {
	return providerTable[ProviderShape(body)](body, order)
}

func setProviderObject(body []byte, order []string) ([]byte, error) {
	return sjson.SetBytes(body, providerField, map[string][]string{orderField: order})
}

func mergeOrder(body []byte, order []string) ([]byte, error) {
	return sjson.SetBytes(body, providerField+"."+orderField, order)
}
