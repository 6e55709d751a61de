// Copyright (c) 2024 Neomantra Corp

package sbe

// TypeKind distinguishes the four kinds of <types> entries an SBE schema
// can declare.
type TypeKind uint8

const (
	KindType TypeKind = iota
	KindEnum
	KindSet
	KindComposite
)

// EnumValue is one <validValue> of an <enum> type. Text is the raw encoded
// text content (e.g. "0", "A") that the schema compares decoded values
// against; Name is the short enumerant; Description is the long form
// returned by Field.Value(), falling back to Name when the schema omits it.
type EnumValue struct {
	Text        string
	Name        string
	Description string
}

// SetChoice is one <choice> of a <set> type: a bit position paired with its
// name.
type SetChoice struct {
	Bit  int
	Name string
}

// CompositeChild is one member <type> of a <composite>, e.g. the mantissa
// or exponent of a decimal, or a header field of messageHeader.
type CompositeChild struct {
	Name         string
	Description  string
	Primitive    Primitive
	Length       int
	HasConstant  bool
	ConstantText string
	NullValue    *int64
}

// Size returns the byte width of this child: zero for a constant (it is
// returned without ever touching the buffer), its declared length for
// array types, or the primitive's natural width otherwise.
func (c *CompositeChild) Size() int {
	if c.HasConstant {
		return 0
	}
	if c.Length > 0 {
		return c.Length * primitiveSize[c.Primitive]
	}
	return primitiveSize[c.Primitive]
}

// TypeDescriptor is one entry of a schema's <types> block: a scalar type,
// an enum, a set, or a composite.
type TypeDescriptor struct {
	Name         string
	Kind         TypeKind
	Primitive    Primitive
	Length       int
	SemanticType string
	IsString     bool
	HasConstant  bool
	ConstantText string
	NullValue    *int64
	EnumValues   []EnumValue
	SetChoices   []SetChoice
	Composite    []CompositeChild
}

// Size returns the byte width this type occupies on the wire: zero for a
// constant scalar (its value is returned without ever touching the
// buffer).
func (t *TypeDescriptor) Size() int {
	switch t.Kind {
	case KindComposite:
		size := 0
		for _, c := range t.Composite {
			size += c.Size()
		}
		return size
	default:
		if t.HasConstant {
			return 0
		}
		if t.Length > 0 {
			return t.Length * primitiveSize[t.Primitive]
		}
		return primitiveSize[t.Primitive]
	}
}

// FieldKind tags which decode variant a FieldDescriptor implements,
// replacing dynamic attribute dispatch with a typed switch.
type FieldKind uint8

const (
	FieldScalar FieldKind = iota
	FieldString
	FieldEnum
	FieldSet
	FieldComposite
)

// FieldDescriptor is one decodable field of a message or a group entry:
// a header field, a top-level body field, or a composite's member.
type FieldDescriptor struct {
	Name         string
	Description  string
	Kind         FieldKind
	Offset       int // offset relative to the enclosing block
	Length       int // byte width on the wire
	Primitive    Primitive
	NullValue    *int64
	HasConstant  bool
	ConstantInt  int64
	ConstantStr  string
	SinceVersion int
	Type         *TypeDescriptor // backing enum/set/composite, nil for plain scalars
}

// GroupDescriptor is one <group> of a message: a dimension (blockLength +
// numInGroup) followed by that many fixed-size entries, each carrying the
// group's own fields and any nested sub-groups.
type GroupDescriptor struct {
	Name          string
	DimensionSize int
	SinceVersion  int
	Fields        []FieldDescriptor
	Groups        []GroupDescriptor
}

// MessageDescriptor is a fully bound message definition: its header and
// body fields at their computed offsets, and its top-level groups.
type MessageDescriptor struct {
	Name        string
	TemplateID  int
	BlockLength int
	HeaderSize  int
	Fields      []FieldDescriptor
	Groups      []GroupDescriptor
}

// Schema is the parsed, in-memory form of an SBE schema: every declared
// type and every message, keyed for O(1) template-id dispatch.
type Schema struct {
	Types    map[string]*TypeDescriptor
	Messages map[int]*MessageDescriptor
	Endian   Endian
}

// MessageByTemplateID returns the message descriptor for a template id, or
// false if the schema declares no such message.
func (s *Schema) MessageByTemplateID(id int) (*MessageDescriptor, bool) {
	m, ok := s.Messages[id]
	return m, ok
}
