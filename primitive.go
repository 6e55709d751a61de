// Copyright (c) 2024 Neomantra Corp

package sbe

import "encoding/binary"

// Primitive identifies one of the eleven SBE primitive encodings.
type Primitive uint8

const (
	PrimitiveChar Primitive = iota
	PrimitiveInt8
	PrimitiveInt16
	PrimitiveInt32
	PrimitiveInt64
	PrimitiveUint8
	PrimitiveUint16
	PrimitiveUint32
	PrimitiveUint64
	PrimitiveFloat
	PrimitiveDouble
)

// primitiveSize holds the fixed byte width of each primitive.
var primitiveSize = map[Primitive]int{
	PrimitiveChar:   1,
	PrimitiveInt8:   1,
	PrimitiveInt16:  2,
	PrimitiveInt32:  4,
	PrimitiveInt64:  8,
	PrimitiveUint8:  1,
	PrimitiveUint16: 2,
	PrimitiveUint32: 4,
	PrimitiveUint64: 8,
	PrimitiveFloat:  4,
	PrimitiveDouble: 8,
}

// primitiveByName maps the schema's primitiveType attribute to a Primitive.
var primitiveByName = map[string]Primitive{
	"char":   PrimitiveChar,
	"int8":   PrimitiveInt8,
	"int16":  PrimitiveInt16,
	"int32":  PrimitiveInt32,
	"int64":  PrimitiveInt64,
	"uint8":  PrimitiveUint8,
	"uint16": PrimitiveUint16,
	"uint32": PrimitiveUint32,
	"uint64": PrimitiveUint64,
	"float":  PrimitiveFloat,
	"double": PrimitiveDouble,
}

// Endian selects the byte order used to decode multi-byte scalars.
// Only LittleEndian is exercised; CME MDP 3.0 and SBE's default wire
// encoding are both little-endian. BigEndian is kept as a named value so
// the schema model can round-trip an "endian" attribute, but every entry
// point that receives it returns a SchemaError until it is implemented.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

// readRaw reads a primitive scalar at the given offset as an unsigned
// 64-bit accumulator; callers reinterpret the low bits per primitive.
// No bounds checking beyond what the caller already guarantees via
// message/group sizing — this mirrors the teacher's unchecked
// binary.LittleEndian reads in structs.go's Fill_Raw methods.
func readRaw(buf []byte, offset int, p Primitive, endian Endian) uint64 {
	if endian != LittleEndian {
		panic("sbe: only LittleEndian is supported; caller must reject BigEndian earlier")
	}
	switch p {
	case PrimitiveChar, PrimitiveInt8, PrimitiveUint8:
		return uint64(buf[offset])
	case PrimitiveInt16, PrimitiveUint16:
		return uint64(binary.LittleEndian.Uint16(buf[offset : offset+2]))
	case PrimitiveInt32, PrimitiveUint32, PrimitiveFloat:
		return uint64(binary.LittleEndian.Uint32(buf[offset : offset+4]))
	case PrimitiveInt64, PrimitiveUint64, PrimitiveDouble:
		return binary.LittleEndian.Uint64(buf[offset : offset+8])
	default:
		panic("sbe: unknown primitive")
	}
}

// readCharArray returns the raw length bytes of a fixed char array field.
func readCharArray(buf []byte, offset int, length int) []byte {
	return buf[offset : offset+length]
}
