// Copyright (c) 2024 Neomantra Corp

package sbe

import "iter"

// Parser walks a packet buffer, yielding one bound Message per SBE
// message until the buffer is exhausted, grounded in SBEParser.parse.
type Parser struct {
	factory *MessageFactory
}

// NewParser returns a parser bound to schema.
func NewParser(schema *Schema) *Parser {
	return &Parser{factory: NewMessageFactory(schema)}
}

// Messages returns an iterator over every message in buf starting at
// offset (12 for a CME MDP 3.0 packet: 4-byte sequence + 8-byte sending
// time), advancing by each message's own message_size. A decode error
// yields (nil, err) and ends iteration; the parser cannot safely resync
// past a malformed message.
func (p *Parser) Messages(buf []byte, offset int) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		for offset < len(buf) {
			msg, size, err := p.factory.Build(buf, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
			offset += size
		}
	}
}

// Count walks buf exactly as Messages does but without materializing any
// message, for callers that need the message count up front — the
// two-pass "count, then render" pattern used for pretty-printing in the
// original (out of scope here, but the counting primitive is kept).
func (p *Parser) Count(buf []byte, offset int) (int, error) {
	n := 0
	for offset < len(buf) {
		_, size, err := p.factory.Build(buf, offset)
		if err != nil {
			return n, err
		}
		n++
		offset += size
	}
	return n, nil
}
