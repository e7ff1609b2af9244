// Package scalar carries numeric control values across the pipeline boundary.
// Value is a closed sum type: only the variants declared here satisfy it.
package scalar

import "fmt"

// Value is a tagged numeric scalar.
type Value interface {
	// Tag names the variant, mainly for logs and rejections.
	Tag() string
	sealed()
}

type (
	// F32 is a 32-bit float.
	F32 float32
	// F64 is a 64-bit float.
	F64 float64
	// U32 is a 32-bit unsigned integer.
	U32 uint32
	// U64 is a 64-bit unsigned integer.
	U64 uint64
	// Null is the absent value.
	Null struct{}
	// Unsupported stands in for any tag the receiver has no coercion for
	// (signed integers, strings, booleans and the like on the wire).
	Unsupported struct{ Name string }
)

func (F32) Tag() string           { return "f32" }
func (F64) Tag() string           { return "f64" }
func (U32) Tag() string           { return "u32" }
func (U64) Tag() string           { return "u64" }
func (Null) Tag() string          { return "null" }
func (u Unsupported) Tag() string { return u.Name }

func (F32) sealed()         {}
func (F64) sealed()         {}
func (U32) sealed()         {}
func (U64) sealed()         {}
func (Null) sealed()        {}
func (Unsupported) sealed() {}

// Float32 coerces v into the adapter's native gain type. Floats and unsigned
// integers convert numerically, Null becomes exactly 0. Every other tag
// reports ok == false and the caller must leave its state untouched.
func Float32(v Value) (f float32, ok bool) {
	switch x := v.(type) {
	case F32:
		return float32(x), true
	case F64:
		return float32(x), true
	case U32:
		return float32(x), true
	case U64:
		return float32(x), true
	case Null:
		return 0, true
	default:
		return 0, false
	}
}

// String renders the value with its tag, e.g. "f32(0.5)".
func String(v Value) string {
	switch x := v.(type) {
	case F32:
		return fmt.Sprintf("f32(%g)", float32(x))
	case F64:
		return fmt.Sprintf("f64(%g)", float64(x))
	case U32:
		return fmt.Sprintf("u32(%d)", uint32(x))
	case U64:
		return fmt.Sprintf("u64(%d)", uint64(x))
	case Null:
		return "null"
	case nil:
		return "<nil>"
	default:
		return v.Tag() + "(?)"
	}
}
