// Copyright (c) 2024 Neomantra Corp

package sbe

import (
	"math"
	"strconv"
	"strings"
)

// Field is a schema field bound to a buffer at a given base and relative
// offset. It is cheap to copy and carries no state beyond those three
// things, so rebinding it (as groups do on every Next()) is just
// overwriting the struct.
type Field struct {
	desc *FieldDescriptor
	buf  []byte
	base int
	rel  int
}

func bindField(desc *FieldDescriptor, buf []byte, base, rel int) Field {
	return Field{desc: desc, buf: buf, base: base, rel: rel}
}

// Name returns the field's schema name (already snake_cased).
func (f Field) Name() string { return f.desc.Name }

// Kind reports which decode variant this field implements.
func (f Field) Kind() FieldKind { return f.desc.Kind }

// SinceVersion returns the schema version this field was introduced in.
func (f Field) SinceVersion() int { return f.desc.SinceVersion }

func (f Field) offset() int { return f.base + f.rel + f.desc.Offset }

// RawValue returns the field's undecoded value: the numeric scalar before
// null-sentinel substitution, the full NUL-padded string, the integer
// bitmask of a set, the integer discriminant of an enum (a one-character
// string for a char-encoded enum), or a name-to-value map for a
// composite's members.
func (f Field) RawValue() any {
	d := f.desc
	if d.HasConstant {
		if d.Kind == FieldString || d.ConstantStr != "" {
			return d.ConstantStr
		}
		return d.ConstantInt
	}
	off := f.offset()
	switch d.Kind {
	case FieldString:
		return string(readCharArray(f.buf, off, d.Length))
	case FieldEnum:
		// A char-encoded enum's wire value is the ASCII character itself
		// (e.g. '0', '1', '2' for MDEntryType); schema validValue text is
		// compared against that same character, not its decimal code.
		if d.Primitive == PrimitiveChar {
			b := byte(readRaw(f.buf, off, d.Primitive, LittleEndian))
			return string(rune(b))
		}
		return int64(readRaw(f.buf, off, d.Primitive, LittleEndian))
	case FieldSet:
		return int64(readRaw(f.buf, off, d.Primitive, LittleEndian))
	case FieldComposite:
		return f.compositeRawParts()
	default:
		return rawScalar(f.buf, off, d.Primitive)
	}
}

// enumText renders an enum's RawValue (either an int64 discriminant or a
// single-character string) as the text a validValue element's content is
// compared against.
func enumText(raw any) string {
	switch v := raw.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return ""
	}
}

// Value returns the field's decoded value: nil for a null-sentinel
// scalar, the string truncated at its first NUL, the enum's long
// description, the comma-joined set choice names, or the composite's
// decimal value (mantissa * 10^exponent) when its members are named
// mantissa/exponent, else a map of its members' values (nil for a member
// equal to its nullValue).
func (f Field) Value() any {
	d := f.desc
	switch d.Kind {
	case FieldString:
		s := f.RawValue().(string)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s
	case FieldEnum:
		text := enumText(f.RawValue())
		for _, v := range d.Type.EnumValues {
			if v.Text == text {
				return v.Description
			}
		}
		return nil
	case FieldSet:
		raw := f.RawValue().(int64)
		bits := d.Length * 8
		var parts []string
		for i := 0; i < bits; i++ {
			if raw&(1<<uint(i)) == 0 {
				continue
			}
			for _, c := range d.Type.SetChoices {
				if c.Bit == i {
					parts = append(parts, c.Name)
				}
			}
		}
		return strings.Join(parts, ", ")
	case FieldComposite:
		return f.compositeValue()
	default:
		raw := f.RawValue()
		if d.NullValue != nil {
			if n, ok := toInt64(raw); ok && n == *d.NullValue {
				return nil
			}
		}
		if d.HasConstant {
			if d.ConstantStr != "" {
				return d.ConstantStr
			}
			return d.ConstantInt
		}
		return raw
	}
}

// Enumerant returns the short enum name (e.g. "New") rather than the
// long description (e.g. "New Entry"). Empty unless Kind() == FieldEnum.
func (f Field) Enumerant() string {
	if f.desc.Kind != FieldEnum {
		return ""
	}
	text := enumText(f.RawValue())
	for _, v := range f.desc.Type.EnumValues {
		if v.Text == text {
			return v.Name
		}
	}
	return ""
}

func (f Field) compositeRawParts() map[string]any {
	parts := make(map[string]any, len(f.desc.Type.Composite))
	off := f.offset()
	for _, c := range f.desc.Type.Composite {
		parts[c.Name] = compositeChildRaw(c, f.buf, off)
		off += c.Size()
	}
	return parts
}

func (f Field) compositeValue() any {
	parts := make(map[string]any, len(f.desc.Type.Composite))
	off := f.offset()
	isFloat := false
	for _, c := range f.desc.Type.Composite {
		v := compositeChildRaw(c, f.buf, off)
		if c.NullValue != nil {
			if n, ok := toInt64(v); ok && n == *c.NullValue {
				v = nil
			}
		}
		parts[c.Name] = v
		off += c.Size()
		if c.Name == "mantissa" {
			isFloat = true
		}
	}
	if isFloat {
		mantissa, mOk := toInt64(parts["mantissa"])
		exponent, eOk := toInt64(parts["exponent"])
		if !mOk || !eOk {
			return nil
		}
		return decimalFromMantissaExponent(mantissa, int8(exponent))
	}
	return parts
}

func compositeChildRaw(c CompositeChild, buf []byte, off int) any {
	if c.HasConstant {
		if c.Primitive == PrimitiveChar {
			return c.ConstantText
		}
		n, err := strconv.ParseInt(c.ConstantText, 10, 64)
		if err != nil {
			return nil
		}
		return n
	}
	return rawScalar(buf, off, c.Primitive)
}

func rawScalar(buf []byte, off int, p Primitive) any {
	raw := readRaw(buf, off, p, LittleEndian)
	switch p {
	case PrimitiveChar, PrimitiveUint8:
		return uint8(raw)
	case PrimitiveInt8:
		return int8(raw)
	case PrimitiveUint16:
		return uint16(raw)
	case PrimitiveInt16:
		return int16(raw)
	case PrimitiveUint32:
		return uint32(raw)
	case PrimitiveInt32:
		return int32(raw)
	case PrimitiveUint64:
		return raw
	case PrimitiveInt64:
		return int64(raw)
	case PrimitiveFloat:
		return math.Float32frombits(uint32(raw))
	case PrimitiveDouble:
		return math.Float64frombits(raw)
	default:
		return raw
	}
}

// toInt64 normalizes any of rawScalar's possible return types to an
// int64, for comparing against a nullValue sentinel. Returns false for
// types a null sentinel never applies to (strings, floats, maps).
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case uint8:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
