package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// ElemKind is the scalar element kind of a DataType.
type ElemKind int

const (
	Int ElemKind = iota
	UInt
	Float
)

func (k ElemKind) String() string {
	switch k {
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Float:
		return "float"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DataType describes the element type carried by a node or edge.
// Arbitrary bit widths are allowed for integers; floats are restricted to
// the widths synthesizable by both HLS dialects.
type DataType struct {
	Kind  ElemKind
	Width int
}

func (t DataType) String() string {
	return t.Kind.String() + strconv.Itoa(t.Width)
}

// Check reports whether the type is well-formed.
func (t DataType) Check() error {
	switch t.Kind {
	case Int, UInt:
		if t.Width < 1 {
			return fmt.Errorf("%s types need a positive bit width, got %d", t.Kind, t.Width)
		}
	case Float:
		if t.Width != 16 && t.Width != 32 && t.Width != 64 {
			return fmt.Errorf("float width must be 16, 32 or 64, got %d", t.Width)
		}
	default:
		return fmt.Errorf("unknown element kind %d", int(t.Kind))
	}
	return nil
}

// AcceptsFrom reports whether a value produced as `src` may be consumed as `t`
// without silent truncation. Kinds must match exactly and the consumer must be
// at least as wide as the producer.
func (t DataType) AcceptsFrom(src DataType) bool {
	return t.Kind == src.Kind && t.Width >= src.Width
}

// ParseDataType parses type names of the form "int8", "uint13" or "float32".
func ParseDataType(name string) (DataType, error) {
	for _, kind := range []ElemKind{UInt, Int, Float} {
		prefix := kind.String()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		width, err := strconv.Atoi(name[len(prefix):])
		if err != nil {
			return DataType{}, fmt.Errorf("invalid type name %q", name)
		}
		t := DataType{Kind: kind, Width: width}
		if err := t.Check(); err != nil {
			return DataType{}, err
		}
		return t, nil
	}
	return DataType{}, fmt.Errorf("invalid type name %q", name)
}
