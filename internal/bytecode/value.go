package bytecode

import "strconv"

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is the tagged union every willow expression evaluates to: nil, a
// bool, an IEEE-754 double, or a handle to a heap-allocated Obj.
//
// Value is a plain Go value type (no heap allocation of its own); the
// object it may reference is owned and traced by the VM's heap.
type Value struct {
	kind   Kind
	b      bool
	number float64
	obj    Obj
}

// Nil is the canonical nil value.
var Nil = Value{kind: KindNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// ObjectValue constructs a value wrapping a heap object handle.
func ObjectValue(o Obj) Value { return Value{kind: KindObject, obj: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObject() Obj     { return v.obj }

// Truthy implements willow's truthiness rule: nil is false, a bool is
// itself, everything else (numbers, strings, every other object) is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal implements deep equality: same variant and componentwise equal.
// Strings compare by pointer identity, which is sound because every
// string is canonicalized through the intern table.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.number == o.number
	case KindObject:
		return v.obj == o.obj
	default:
		return false
	}
}

// String formats a value the way PRINT/PRINTLN do: nil -> "nil", bool ->
// "true"/"false", number -> shortest round-trip decimal, string -> raw
// bytes, object -> a kind-prefixed form.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindObject:
		return formatObject(v.obj)
	default:
		return "?"
	}
}

// IsString reports whether v holds a string object.
func (v Value) IsString() bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.obj.(*ObjString)
	return ok
}

// AsString returns the Go string backing a string value. Callers must
// have already checked IsString.
func (v Value) AsString() string {
	return v.obj.(*ObjString).Chars
}
