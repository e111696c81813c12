// Package converter converts values between their Go form and the form
// stored in a database column.
package converter

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Converter converts a column value to a Go value and back.
type Converter interface {
	// Convert converts a value read from the database.
	Convert(value any) (any, error)
	// ConvertBack converts a value to be written to the database.
	ConvertBack(value any) (any, error)
}

// JSONConverter stores values of one type as JSON text.
type JSONConverter struct {
	typ reflect.Type
}

// NewJSON returns a converter for values of typ.
func NewJSON(typ reflect.Type) (*JSONConverter, error) {
	if typ == nil {
		return nil, errors.New("json converter: nil type")
	}
	return &JSONConverter{typ: typ}, nil
}

// Convert decodes JSON text (string or []byte) into a new value of the
// converter's type. NULL converts to nil.
func (c *JSONConverter) Convert(value any) (any, error) {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("json converter: cannot convert %T", value)
	}
	ptr := reflect.New(c.typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("json converter: %w", err)
	}
	return ptr.Elem().Interface(), nil
}

// ConvertBack encodes value as JSON text.
func (c *JSONConverter) ConvertBack(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json converter: %w", err)
	}
	return string(data), nil
}

// JSON is a column holding V encoded as JSON text. NULL scans into the
// zero value and Valid false.
type JSON[T any] struct {
	V     T
	Valid bool
}

// NewJSONValue wraps v for writing.
func NewJSONValue[T any](v T) JSON[T] {
	return JSON[T]{V: v, Valid: true}
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(src any) error {
	var zero T
	j.V, j.Valid = zero, false
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan json: unsupported type %T", src)
	}
	if err := json.Unmarshal(data, &j.V); err != nil {
		return fmt.Errorf("scan json: %w", err)
	}
	j.Valid = true
	return nil
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	data, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("value json: %w", err)
	}
	return string(data), nil
}
