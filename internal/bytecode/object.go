package bytecode

import "fmt"

// ObjKind tags the concrete variant of a heap Obj, mirroring the kind-tag
// every object carries in its common header.
type ObjKind int

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindClosure
	ObjKindUpvalue
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
	ObjKindNative
	ObjKindList
)

// Obj is satisfied by every heap object variant. The common header fields
// (kind tag, mark flag, heap-list link) live in an embedded Header, whose
// promoted Head method is how every variant implements this interface.
type Obj interface {
	Head() *Header
}

// Header is the common record every heap object embeds: a kind tag, the
// tri-color mark flag, and the intrusive link to the next object on the
// VM's heap list. It is never constructed directly by anything outside
// the object's own constructor.
type Header struct {
	Kind   ObjKind
	Marked bool
	Next   Obj
}

func (h *Header) Head() *Header { return h }

// ObjString is an immutable, interned byte sequence. Two strings with
// equal content are guaranteed to share identity after interning, so
// string equality reduces to pointer comparison.
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

// NewObjString constructs a string object. It does not intern or
// register the object with any heap; callers (the VM's string table) are
// responsible for that.
func NewObjString(chars string, hash uint32) *ObjString {
	s := &ObjString{Chars: chars, Hash: hash}
	s.Kind = ObjKindString
	return s
}

// FNV1a32 is the 32-bit FNV-1a hash used to key interned strings.
func FNV1a32(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// ObjFunction is a compiled function body: its arity, how many upvalues
// its closures must capture, its bytecode chunk, and an optional name
// (nil for the top-level script).
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString
}

func NewObjFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	f.Kind = ObjKindFunction
	return f
}

// ObjUpvalue is the indirection a closure uses to read or write a
// variable declared in an enclosing scope. While open it borrows a live
// stack slot (Location); Close performs the one-shot open -> closed
// transition, after which the value is owned inline (Closed).
type ObjUpvalue struct {
	Header
	Location *Value     // non-nil while open; aliases a stack slot
	Closed   Value      // owned value once closed
	NextOpen *ObjUpvalue // link in the VM's open-upvalue list, sorted by descending slot address
}

func NewObjUpvalue(slot *Value) *ObjUpvalue {
	u := &ObjUpvalue{Location: slot}
	u.Kind = ObjKindUpvalue
	return u
}

// IsOpen reports whether the upvalue still aliases a live stack slot.
func (u *ObjUpvalue) IsOpen() bool { return u.Location != nil }

// Get reads the upvalue's current value, whether open or closed.
func (u *ObjUpvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through the upvalue, whether open or closed.
func (u *ObjUpvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close transitions the upvalue from open to closed, copying the current
// slot value inline and severing the stack alias. Closing an already
// closed upvalue is a no-op.
func (u *ObjUpvalue) Close() {
	if u.Location == nil {
		return
	}
	u.Closed = *u.Location
	u.Location = nil
}

// ObjClosure pairs a function with its captured environment.
type ObjClosure struct {
	Header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func NewObjClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
	c.Kind = ObjKindClosure
	return c
}

// ObjClass is a named bag of methods (String -> closure Value).
type ObjClass struct {
	Header
	Name    *ObjString
	Methods *Table
}

func NewObjClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	c.Kind = ObjKindClass
	return c
}

// ObjInstance is a live object of some class, with its own field table.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *Table
}

func NewObjInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	i.Kind = ObjKindInstance
	return i
}

// ObjBoundMethod pairs a receiver with the closure that should run with
// that receiver installed as slot 0.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

func NewObjBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	b.Kind = ObjKindBoundMethod
	return b
}

// NativeFn is the fixed signature every native function implements. It
// returns the result value and true on success; on failure it returns a
// zero Value and false, having already raised an error on the VM it was
// given.
type NativeFn func(vm NativeVM, args []Value) (Value, bool)

// NativeVM is the minimal surface natives need from the VM: reporting a
// runtime error. Defined here (rather than importing the vm package,
// which would cycle) and satisfied by *vm.VM.
type NativeVM interface {
	RuntimeError(format string, args ...interface{}) error
}

// ObjNative wraps a host-provided function reachable from script code
// under a global name.
type ObjNative struct {
	Header
	Name string
	Fn   NativeFn
}

func NewObjNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	n.Kind = ObjKindNative
	return n
}

// ObjList is a growable ordered sequence of values.
type ObjList struct {
	Header
	Items []Value
}

func NewObjList() *ObjList {
	l := &ObjList{}
	l.Kind = ObjKindList
	return l
}

// formatObject implements the object half of Value.String: a
// kind-prefixed form for everything except strings, which print raw.
func formatObject(o Obj) string {
	switch v := o.(type) {
	case *ObjString:
		return v.Chars
	case *ObjFunction:
		if v.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", v.Name.Chars)
	case *ObjClosure:
		return formatObject(v.Function)
	case *ObjUpvalue:
		return "<upvalue>"
	case *ObjClass:
		return v.Name.Chars
	case *ObjInstance:
		return fmt.Sprintf("<instance of %s>", v.Class.Name.Chars)
	case *ObjBoundMethod:
		return formatObject(v.Method)
	case *ObjNative:
		return "<native fn>"
	case *ObjList:
		s := "["
		for i, e := range v.Items {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return "<object>"
	}
}
