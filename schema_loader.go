// Copyright (c) 2024 Neomantra Corp

package sbe

import (
	"encoding/xml"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
)

// LoaderConfig selects one of three schema sources. Exactly one of
// XMLPath, ArtifactPath, or Reader should be set; ArtifactPath is tried
// first, then XMLPath, then Reader, matching the original's "try a
// preparsed fallback, otherwise parse the XML" order.
type LoaderConfig struct {
	// XMLPath is a path to a CME-style SBE schema XML file.
	XMLPath string
	// ArtifactPath is a path to a SerializedSchema artifact written by
	// SaveArtifact, zstd-decompressed when it ends in ".zst" or ".zstd".
	// Gzip-compressed artifacts are not recognized.
	ArtifactPath string
	// Reader, if set and both paths are empty, is read as schema XML.
	Reader io.Reader
	// Endian is the wire byte order. Only LittleEndian is implemented;
	// any other value is rejected with a SchemaError.
	Endian Endian
}

// Load builds a Schema from the source named by cfg.
func Load(cfg LoaderConfig) (*Schema, error) {
	if cfg.Endian != LittleEndian {
		return nil, wrapSchemaError("unsupported endianness", ErrUnsupportedEndian)
	}
	switch {
	case cfg.ArtifactPath != "":
		return loadArtifact(cfg.ArtifactPath, cfg.Endian)
	case cfg.XMLPath != "":
		f, err := os.Open(cfg.XMLPath)
		if err != nil {
			return nil, ioErrorf(cfg.XMLPath, err)
		}
		defer f.Close()
		return parseXML(f, cfg.Endian)
	case cfg.Reader != nil:
		return parseXML(cfg.Reader, cfg.Endian)
	default:
		return nil, schemaErrorf("LoaderConfig: one of XMLPath, ArtifactPath, or Reader must be set")
	}
}

///////////////////////////////////////////////////////////////////////////////
// camelCase -> snake_case, mirroring sbedecoder.schema.convert_to_underscore

var (
	underscoreRe1 = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	underscoreRe2 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

func convertToUnderscore(name string) string {
	name = strings.Trim(name, "@#")
	s1 := underscoreRe1.ReplaceAllString(name, "${1}_${2}")
	s2 := underscoreRe2.ReplaceAllString(s1, "${1}_${2}")
	return strings.ToLower(s2)
}

///////////////////////////////////////////////////////////////////////////////
// raw XML shape of a CME-style SBE schema

type xmlSchema struct {
	XMLName xml.Name    `xml:"messageSchema"`
	Types   []xmlType   `xml:"types>type"`
	Enums   []xmlEnum   `xml:"types>enum"`
	Sets    []xmlSet    `xml:"types>set"`
	Composites []xmlComposite `xml:"types>composite"`
	Messages   []xmlMessage   `xml:"message"`
}

type xmlType struct {
	Name         string `xml:"name,attr"`
	PrimitiveType string `xml:"primitiveType,attr"`
	Length       string `xml:"length,attr"`
	SemanticType string `xml:"semanticType,attr"`
	Presence     string `xml:"presence,attr"`
	NullValue    string `xml:"nullValue,attr"`
	Text         string `xml:",chardata"`
}

type xmlValidValue struct {
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
	Text        string `xml:",chardata"`
}

type xmlEnum struct {
	Name         string          `xml:"name,attr"`
	EncodingType string          `xml:"encodingType,attr"`
	ValidValues  []xmlValidValue `xml:"validValue"`
}

type xmlChoice struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

type xmlSet struct {
	Name         string      `xml:"name,attr"`
	EncodingType string      `xml:"encodingType,attr"`
	Choices      []xmlChoice `xml:"choice"`
}

type xmlComposite struct {
	Name  string    `xml:"name,attr"`
	Types []xmlType `xml:"type"`
}

type xmlField struct {
	Name         string `xml:"name,attr"`
	ID           string `xml:"id,attr"`
	Type         string `xml:"type,attr"`
	Offset       string `xml:"offset,attr"`
	SinceVersion string `xml:"sinceVersion,attr"`
}

type xmlGroup struct {
	Name          string     `xml:"name,attr"`
	ID            string     `xml:"id,attr"`
	DimensionType string     `xml:"dimensionType,attr"`
	SinceVersion  string     `xml:"sinceVersion,attr"`
	Fields        []xmlField `xml:"field"`
	Groups        []xmlGroup `xml:"group"`
}

type xmlMessage struct {
	Name        string     `xml:"name,attr"`
	ID          string     `xml:"id,attr"`
	BlockLength string     `xml:"blockLength,attr"`
	Fields      []xmlField `xml:"field"`
	Groups      []xmlGroup `xml:"group"`
}

///////////////////////////////////////////////////////////////////////////////

func parseXML(r io.Reader, endian Endian) (*Schema, error) {
	var doc xmlSchema
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, wrapSchemaError("failed to parse schema xml", err)
	}

	types := make(map[string]*TypeDescriptor)
	for _, t := range doc.Types {
		td, err := buildScalarType(t)
		if err != nil {
			return nil, err
		}
		types[t.Name] = td
	}
	for _, e := range doc.Enums {
		encoding, ok := primitiveByName[e.EncodingType]
		if !ok {
			return nil, schemaErrorf("enum %s: unknown encodingType %q", e.Name, e.EncodingType)
		}
		td := &TypeDescriptor{Name: e.Name, Kind: KindEnum, Primitive: encoding}
		for _, v := range e.ValidValues {
			desc := v.Description
			if desc == "" {
				desc = v.Name
			}
			td.EnumValues = append(td.EnumValues, EnumValue{Text: v.Text, Name: v.Name, Description: desc})
		}
		types[e.Name] = td
	}
	for _, s := range doc.Sets {
		encoding, ok := primitiveByName[s.EncodingType]
		if !ok {
			return nil, schemaErrorf("set %s: unknown encodingType %q", s.Name, s.EncodingType)
		}
		td := &TypeDescriptor{Name: s.Name, Kind: KindSet, Primitive: encoding}
		for _, c := range s.Choices {
			bit, err := strconv.Atoi(strings.TrimSpace(c.Text))
			if err != nil {
				return nil, schemaErrorf("set %s: choice %s: bad bit index %q", s.Name, c.Name, c.Text)
			}
			td.SetChoices = append(td.SetChoices, SetChoice{Bit: bit, Name: c.Name})
		}
		types[s.Name] = td
	}
	for _, c := range doc.Composites {
		td := &TypeDescriptor{Name: c.Name, Kind: KindComposite}
		for _, child := range c.Types {
			prim, ok := primitiveByName[child.PrimitiveType]
			if !ok {
				return nil, schemaErrorf("composite %s: child %s: unknown primitiveType %q", c.Name, child.Name, child.PrimitiveType)
			}
			cc := CompositeChild{Name: convertToUnderscore(child.Name), Description: child.Name, Primitive: prim}
			if child.Length != "" {
				n, err := strconv.Atoi(child.Length)
				if err != nil {
					return nil, schemaErrorf("composite %s: child %s: bad length %q", c.Name, child.Name, child.Length)
				}
				cc.Length = n
			}
			if child.Presence == "constant" {
				cc.HasConstant = true
				cc.ConstantText = strings.TrimSpace(child.Text)
			}
			if child.NullValue != "" {
				n, err := strconv.ParseInt(child.NullValue, 10, 64)
				if err != nil {
					return nil, schemaErrorf("composite %s: child %s: bad nullValue %q", c.Name, child.Name, child.NullValue)
				}
				cc.NullValue = &n
			}
			td.Composite = append(td.Composite, cc)
		}
		types[c.Name] = td
	}

	header, ok := types["messageHeader"]
	if !ok || header.Kind != KindComposite {
		return nil, wrapSchemaError("schema has no messageHeader composite", ErrMissingMessageHeader)
	}

	schema := &Schema{Types: types, Messages: make(map[int]*MessageDescriptor), Endian: endian}
	for _, m := range doc.Messages {
		msg, err := buildMessage(m, types, header)
		if err != nil {
			return nil, err
		}
		if _, dup := schema.Messages[msg.TemplateID]; dup {
			return nil, schemaErrorf("duplicate template_id %d (message %s)", msg.TemplateID, msg.Name)
		}
		schema.Messages[msg.TemplateID] = msg
	}
	return schema, nil
}

func buildScalarType(t xmlType) (*TypeDescriptor, error) {
	prim, ok := primitiveByName[t.PrimitiveType]
	if !ok {
		return nil, schemaErrorf("type %s: unknown primitiveType %q", t.Name, t.PrimitiveType)
	}
	td := &TypeDescriptor{
		Name:         t.Name,
		Kind:         KindType,
		Primitive:    prim,
		SemanticType: t.SemanticType,
		IsString:     t.SemanticType == "String",
	}
	if t.Length != "" {
		n, err := strconv.Atoi(t.Length)
		if err != nil {
			return nil, schemaErrorf("type %s: bad length %q", t.Name, t.Length)
		}
		td.Length = n
	}
	if t.Presence == "constant" {
		td.HasConstant = true
		td.ConstantText = strings.TrimSpace(t.Text)
	}
	if t.NullValue != "" {
		n, err := strconv.ParseInt(t.NullValue, 10, 64)
		if err != nil {
			return nil, schemaErrorf("type %s: bad nullValue %q", t.Name, t.NullValue)
		}
		td.NullValue = &n
	}
	return td, nil
}

func buildHeaderFields(header *TypeDescriptor) ([]FieldDescriptor, int) {
	fields := make([]FieldDescriptor, 0, len(header.Composite))
	offset := 0
	for _, c := range header.Composite {
		fields = append(fields, FieldDescriptor{
			Name:      c.Name,
			Kind:      FieldScalar,
			Offset:    offset,
			Length:    c.Size(),
			Primitive: c.Primitive,
		})
		offset += c.Size()
	}
	return fields, offset
}

func buildMessage(m xmlMessage, types map[string]*TypeDescriptor, header *TypeDescriptor) (*MessageDescriptor, error) {
	templateID, err := strconv.Atoi(m.ID)
	if err != nil {
		return nil, schemaErrorf("message %s: bad id %q", m.Name, m.ID)
	}

	// message_size is CME's own 2-byte envelope prepended ahead of SBE's
	// own blockLength/templateId/schemaId/version header.
	fields := []FieldDescriptor{{
		Name:      "message_size",
		Kind:      FieldScalar,
		Offset:    0,
		Length:    2,
		Primitive: PrimitiveUint16,
	}}
	headerFields, headerFieldsSize := buildHeaderFields(header)
	for i := range headerFields {
		headerFields[i].Offset += 2
	}
	fields = append(fields, headerFields...)
	headerSize := 2 + headerFieldsSize

	offset := headerSize
	for _, f := range m.Fields {
		fd, size, err := buildField(f, types, offset, headerSize, true)
		if err != nil {
			return nil, wrapSchemaError("message "+m.Name, err)
		}
		fields = append(fields, *fd)
		offset += size
	}

	// blockLength is the explicit attribute when present, else the sum
	// of the body fields just computed (there is no variable-length
	// field kind in this model to stop the sum early at; groups are
	// accounted for separately, after blockLength, so they never enter
	// this sum).
	var blockLength int
	if m.BlockLength != "" {
		blockLength, err = strconv.Atoi(m.BlockLength)
		if err != nil {
			return nil, schemaErrorf("message %s: bad blockLength %q", m.Name, m.BlockLength)
		}
	} else {
		blockLength = offset - headerSize
	}

	groups := make([]GroupDescriptor, 0, len(m.Groups))
	for _, g := range m.Groups {
		gd, err := buildGroup(g, types)
		if err != nil {
			return nil, wrapSchemaError("message "+m.Name, err)
		}
		groups = append(groups, *gd)
	}

	return &MessageDescriptor{
		Name:        m.Name,
		TemplateID:  templateID,
		BlockLength: blockLength,
		HeaderSize:  headerSize,
		Fields:      fields,
		Groups:      groups,
	}, nil
}

func buildGroup(g xmlGroup, types map[string]*TypeDescriptor) (*GroupDescriptor, error) {
	dimType, ok := types[g.DimensionType]
	if !ok || dimType.Kind != KindComposite {
		return nil, schemaErrorf("group %s: unknown dimensionType %q", g.Name, g.DimensionType)
	}
	dimSize := dimType.Size()

	sinceVersion := 0
	if g.SinceVersion != "" {
		n, err := strconv.Atoi(g.SinceVersion)
		if err != nil {
			return nil, schemaErrorf("group %s: bad sinceVersion %q", g.Name, g.SinceVersion)
		}
		sinceVersion = n
	}

	fields := make([]FieldDescriptor, 0, len(g.Fields))
	offset := 0
	for _, f := range g.Fields {
		fd, size, err := buildField(f, types, offset, 0, false)
		if err != nil {
			return nil, wrapSchemaError("group "+g.Name, err)
		}
		fields = append(fields, *fd)
		offset += size
	}

	nested := make([]GroupDescriptor, 0, len(g.Groups))
	for _, sub := range g.Groups {
		sd, err := buildGroup(sub, types)
		if err != nil {
			return nil, err
		}
		nested = append(nested, *sd)
	}

	return &GroupDescriptor{
		Name:          convertToUnderscore(g.Name),
		DimensionSize: dimSize,
		SinceVersion:  sinceVersion,
		Fields:        fields,
		Groups:        nested,
	}, nil
}

// buildField resolves one <field> against the type map, returning the
// FieldDescriptor and the byte width it occupies in its enclosing block.
// offset is the running offset within that block; addHeaderSize mirrors
// the original's add_header_size flag, which only applies to top-level
// message fields. An explicit XML offset on a message field is measured
// from the start of the message body, i.e. after the header, so
// headerSize is added to it; group fields have no such adjustment since
// their offsets are always local to the entry (headerSize is 0 there).
func buildField(f xmlField, types map[string]*TypeDescriptor, offset, headerSize int, addHeaderSize bool) (*FieldDescriptor, int, error) {
	t, ok := types[f.Type]
	if !ok {
		return nil, 0, schemaErrorf("field %s: unknown type %q", f.Name, f.Type)
	}

	sinceVersion := 0
	if f.SinceVersion != "" {
		n, err := strconv.Atoi(f.SinceVersion)
		if err != nil {
			return nil, 0, schemaErrorf("field %s: bad sinceVersion %q", f.Name, f.SinceVersion)
		}
		sinceVersion = n
	}

	fieldOffset := offset
	if f.Offset != "" {
		n, err := strconv.Atoi(f.Offset)
		if err != nil {
			return nil, 0, schemaErrorf("field %s: bad offset %q", f.Name, f.Offset)
		}
		fieldOffset = n
		if addHeaderSize {
			fieldOffset += headerSize
		}
	}

	name := convertToUnderscore(f.Name)

	switch t.Kind {
	case KindType:
		size := t.Size()
		fd := &FieldDescriptor{
			Name: name, Description: f.Name, Kind: FieldScalar,
			Offset: fieldOffset, Length: size, Primitive: t.Primitive,
			NullValue: t.NullValue, SinceVersion: sinceVersion,
		}
		if t.IsString {
			fd.Kind = FieldString
		}
		if t.HasConstant {
			fd.HasConstant = true
			if t.Primitive == PrimitiveChar && t.Length > 0 {
				fd.ConstantStr = t.ConstantText
			} else {
				n, err := strconv.ParseInt(t.ConstantText, 10, 64)
				if err != nil {
					return nil, 0, schemaErrorf("field %s: bad constant %q", f.Name, t.ConstantText)
				}
				fd.ConstantInt = n
			}
		}
		return fd, size, nil

	case KindEnum:
		size := primitiveSize[t.Primitive]
		if t.Length > 0 {
			size *= t.Length
		}
		fd := &FieldDescriptor{
			Name: name, Description: f.Name, Kind: FieldEnum,
			Offset: fieldOffset, Length: size, Primitive: t.Primitive,
			SinceVersion: sinceVersion, Type: t,
		}
		return fd, size, nil

	case KindSet:
		size := primitiveSize[t.Primitive]
		if t.Length > 0 {
			size *= t.Length
		}
		fd := &FieldDescriptor{
			Name: name, Description: f.Name, Kind: FieldSet,
			Offset: fieldOffset, Length: size, Primitive: t.Primitive,
			SinceVersion: sinceVersion, Type: t,
		}
		return fd, size, nil

	case KindComposite:
		size := t.Size()
		fd := &FieldDescriptor{
			Name: name, Description: f.Name, Kind: FieldComposite,
			Offset: fieldOffset, Length: size, SinceVersion: sinceVersion, Type: t,
		}
		return fd, size, nil

	default:
		return nil, 0, schemaErrorf("field %s: unhandled type kind", f.Name)
	}
}

///////////////////////////////////////////////////////////////////////////////
// Preparsed serialized-schema artifact: a JSON-encodable DTO so a schema can
// be loaded without paying XML parsing cost on every process start. This is
// the Go-native analogue of the original's generated-code import fallback.

// SerializedSchema is the on-disk/artifact representation of a Schema.
// It is structurally identical to Schema/MessageDescriptor/etc, just with
// exported fields suitable for segmentio/encoding/json round-tripping.
type SerializedSchema struct {
	Endian   Endian                     `json:"endian"`
	Types    map[string]*TypeDescriptor `json:"types"`
	Messages []*MessageDescriptor       `json:"messages"`
}

// SaveArtifact serializes schema to filename, via MakeCompressedWriter so a
// ".zst"/".zstd" suffix transparently compresses the artifact.
func SaveArtifact(schema *Schema, filename string) error {
	w, closer, err := MakeCompressedWriter(filename, false)
	if err != nil {
		return ioErrorf(filename, err)
	}
	defer closer()

	ss := SerializedSchema{Endian: schema.Endian, Types: schema.Types}
	for _, m := range schema.Messages {
		ss.Messages = append(ss.Messages, m)
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(ss); err != nil {
		return ioErrorf(filename, err)
	}
	return nil
}

func loadArtifact(filename string, endian Endian) (*Schema, error) {
	r, closer, err := MakeCompressedReader(filename, false)
	if err != nil {
		return nil, ioErrorf(filename, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	var ss SerializedSchema
	if err := json.NewDecoder(r).Decode(&ss); err != nil {
		return nil, wrapSchemaError("failed to decode schema artifact", err)
	}
	if ss.Endian != endian {
		return nil, schemaErrorf("artifact %s: endian mismatch", filename)
	}

	schema := &Schema{Types: ss.Types, Messages: make(map[int]*MessageDescriptor), Endian: endian}
	for _, m := range ss.Messages {
		if _, dup := schema.Messages[m.TemplateID]; dup {
			return nil, schemaErrorf("duplicate template_id %d (message %s)", m.TemplateID, m.Name)
		}
		schema.Messages[m.TemplateID] = m
	}
	return schema, nil
}
