// Copyright (c) 2024 Neomantra Corp

package sbe

// MessageFactory builds a Message from a packet buffer by peeking its
// template id, grounded in MDPMessageFactory.build.
type MessageFactory struct {
	schema *Schema
}

// NewMessageFactory returns a factory bound to schema.
func NewMessageFactory(schema *Schema) *MessageFactory {
	return &MessageFactory{schema: schema}
}

// Build peeks the template id at offset+4 — past the CME 2-byte
// message_size envelope and the SBE header's 2-byte blockLength — looks
// up the matching message descriptor, and binds it against buf at
// offset. It returns the bound message and its total byte size so the
// caller can advance to the next message.
func (f *MessageFactory) Build(buf []byte, offset int) (*Message, int, error) {
	if offset+6 > len(buf) {
		return nil, 0, unexpectedBytesError(offset, len(buf)-offset, 6)
	}
	templateID := int(readRaw(buf, offset+4, PrimitiveUint16, LittleEndian))
	desc, ok := f.schema.MessageByTemplateID(templateID)
	if !ok {
		return nil, 0, decodeErrorf(offset, "%v: %d", ErrUnknownTemplate, templateID)
	}
	// message_size is the 2-byte envelope at the start of every message.
	size := int(readRaw(buf, offset, PrimitiveUint16, LittleEndian))
	if size == 0 {
		return nil, 0, decodeErrorf(offset, "%v", ErrZeroMessageSize)
	}
	if offset+size > len(buf) {
		return nil, 0, unexpectedBytesError(offset, len(buf)-offset, size)
	}
	msg := bindMessage(desc, buf, offset)
	return msg, size, nil
}
