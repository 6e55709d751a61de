// Copyright (c) 2024 Neomantra Corp

package sbe

// Message is one decoded SBE message: its schema descriptor bound to a
// buffer at a base offset, with every top-level group already wrapped (or
// skipped, per version gating); fields are bound on lookup.
type Message struct {
	desc    *MessageDescriptor
	buf     []byte
	base    int
	version int
	groups  map[string]*GroupCursor
}

// bindMessage wraps desc's top-level groups against buf at base, honoring
// each group's SinceVersion against the message's
// own "version" header field — read first, as it appears early among the
// header fields, exactly as SBEMessage.wrap reads it mid-loop.
func bindMessage(desc *MessageDescriptor, buf []byte, base int) *Message {
	m := &Message{desc: desc, buf: buf, base: base}

	version := 0
	for i := range desc.Fields {
		fd := &desc.Fields[i]
		if version > 0 && fd.SinceVersion > version {
			continue
		}
		if fd.Name == "version" {
			f := bindField(fd, buf, base, 0)
			if n, ok := toInt64(f.RawValue()); ok {
				version = int(n)
			}
		}
	}
	m.version = version

	groupOffset := desc.BlockLength + desc.HeaderSize
	m.groups = make(map[string]*GroupCursor, len(desc.Groups))
	for i := range desc.Groups {
		g := &desc.Groups[i]
		if g.SinceVersion > version {
			continue
		}
		cursor, size := bindGroup(g, buf, base, groupOffset, version)
		m.groups[g.Name] = cursor
		groupOffset += size
	}
	return m
}

// Name returns the message's schema name, e.g. "MDIncrementalRefreshBook".
func (m *Message) Name() string { return m.desc.Name }

// TemplateID returns the message's SBE template id.
func (m *Message) TemplateID() int { return m.desc.TemplateID }

// Version returns the message's schema version, read from its "version"
// header field.
func (m *Message) Version() int { return m.version }

// MessageSize returns the CME envelope's message_size field: the total
// byte length of this message, header included, used by the parser to
// advance to the next message in a packet.
func (m *Message) MessageSize() int {
	f, ok := m.Field("message_size")
	if !ok {
		return 0
	}
	n, _ := toInt64(f.RawValue())
	return int(n)
}

// Field returns the named top-level field: a header field (message_size,
// block_length, template_id, schema_id, version) or a body field. A field
// whose SinceVersion exceeds the message's own version is not exposed.
func (m *Message) Field(name string) (Field, bool) {
	for i := range m.desc.Fields {
		fd := &m.desc.Fields[i]
		if fd.Name != name {
			continue
		}
		if fd.SinceVersion > m.version {
			return Field{}, false
		}
		return bindField(fd, m.buf, m.base, 0), true
	}
	return Field{}, false
}

// Group returns the named top-level repeating group's cursor, or false
// if the message has no such group, or the schema version in effect
// predates it.
func (m *Message) Group(name string) (*GroupCursor, bool) {
	g, ok := m.groups[name]
	return g, ok
}
