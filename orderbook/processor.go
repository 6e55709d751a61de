// Copyright (c) 2024 Neomantra Corp

package orderbook

import (
	"encoding/binary"
	"log/slog"

	"github.com/cmemdp/sbemdp-go"
	"github.com/dustin/go-humanize"
)

const (
	templateIDIncrementalRefreshBook         = 32
	templateIDIncrementalRefreshTradeSummary = 42
)

// SecurityLookup resolves a security id to its display symbol and book
// depth, as loaded by package secdef.
type SecurityLookup interface {
	Lookup(securityID int64) (symbol string, depth int, ok bool)
}

// fieldSource is satisfied by both *sbe.Message and *sbe.GroupCursor.
type fieldSource interface {
	Field(name string) (sbe.Field, bool)
}

// PacketProcessor replays a stream of CME MDP 3.0 UDP payloads against a
// set of per-security order books, dispatching incremental-refresh book
// and trade-summary messages to the books they affect.
//
// Only the base orderbooks are tracked; implied books are out of scope.
type PacketProcessor struct {
	parser           *sbe.Parser
	secdef           SecurityLookup
	securityIDFilter map[int64]bool

	streamSequence int64
	baseOrderbooks map[int64]*OrderBook

	Logger *slog.Logger

	// OnOrderBook is invoked once per packet for every book that received
	// a visible update (within its DisplayLevels).
	OnOrderBook func(*OrderBook)
	// OnTrade is invoked once per trade entry, immediately as it is
	// applied.
	OnTrade func(*OrderBook)
}

// NewPacketProcessor creates a processor that decodes messages via parser
// and resolves book depth/symbol via secdef. securityIDFilter, if
// non-nil, restricts processing to the given set of security ids.
func NewPacketProcessor(parser *sbe.Parser, secdef SecurityLookup, securityIDFilter map[int64]bool) *PacketProcessor {
	return &PacketProcessor{
		parser:           parser,
		secdef:           secdef,
		securityIDFilter: securityIDFilter,
		streamSequence:   -1,
		baseOrderbooks:   make(map[int64]*OrderBook),
		Logger:           slog.Default(),
	}
}

// HandlePacket processes one UDP payload: a 4-byte LE stream sequence, an
// 8-byte LE sending time, then one or more SBE messages starting at
// offset 12. A stream sequence at or before the last seen one is dropped;
// a gap (non-consecutive sequence) is logged but does not stop
// processing. A decode error on any message skips the remainder of the
// packet.
func (p *PacketProcessor) HandlePacket(receivedTimeUs int64, payload []byte) {
	if len(payload) < 12 {
		return
	}
	streamSeq := int64(int32(binary.LittleEndian.Uint32(payload[0:4])))
	if streamSeq <= p.streamSequence {
		p.Logger.Debug("[PacketProcessor.HandlePacket] dropping duplicate stream sequence", "seq", streamSeq)
		return
	}
	if p.streamSequence+1 != streamSeq {
		p.Logger.Warn("[PacketProcessor.HandlePacket] stream sequence gap", "from", p.streamSequence, "to", streamSeq)
	}
	sendingTime := binary.LittleEndian.Uint64(payload[4:12])
	p.streamSequence = streamSeq

	updated := make(map[int64]*OrderBook)
	for msg, err := range p.parser.Messages(payload, 12) {
		if err != nil {
			p.Logger.Warn("[PacketProcessor.HandlePacket] decode error, skipping remainder of packet", "err", err)
			break
		}
		switch msg.TemplateID() {
		case templateIDIncrementalRefreshBook:
			p.handleBook(streamSeq, sendingTime, receivedTimeUs, msg, updated)
		case templateIDIncrementalRefreshTradeSummary:
			p.handleTrade(streamSeq, sendingTime, receivedTimeUs, msg)
		}
	}
	if len(updated) > 0 {
		p.Logger.Debug("[PacketProcessor.HandlePacket] packet touched books",
			"count", humanize.Comma(int64(len(updated))), "total_tracked", humanize.Comma(int64(len(p.baseOrderbooks))))
	}
	if p.OnOrderBook != nil {
		for _, ob := range updated {
			p.OnOrderBook(ob)
		}
	}
}

func (p *PacketProcessor) resolveBook(securityID int64) *OrderBook {
	ob, seen := p.baseOrderbooks[securityID]
	if seen {
		return ob
	}
	if symbol, depth, ok := p.secdef.Lookup(securityID); ok {
		ob = New(securityID, depth, symbol)
	}
	// Cache a nil entry when the depth is unknown so we don't repeat the
	// lookup every message.
	p.baseOrderbooks[securityID] = ob
	return ob
}

func (p *PacketProcessor) handleBook(streamSeq int64, sendingTime uint64, receivedTime int64, msg *sbe.Message, updated map[int64]*OrderBook) {
	entries, ok := msg.Group("no_md_entries")
	if !ok {
		return
	}
	for entries.Next() {
		securityID, ok := fieldInt64(entries, "security_id")
		if !ok {
			continue
		}
		if p.securityIDFilter != nil && !p.securityIDFilter[securityID] {
			continue
		}
		ob := p.resolveBook(securityID)
		if ob == nil {
			continue
		}

		level, _ := fieldInt64(entries, "md_price_level")
		rptSeq, _ := fieldInt64(entries, "rpt_seq")
		entryType := fieldString(entries, "md_entry_type")
		action := fieldString(entries, "md_update_action")
		price := fieldFloatPtr(entries, "md_entry_px")
		size := fieldIntPtr(entries, "md_entry_size")
		numOrders := fieldIntPtr(entries, "number_of_orders")

		visible := ob.HandleUpdate(sendingTime, receivedTime, streamSeq, rptSeq, int(level), entryType, action, price, size, numOrders)
		if visible {
			updated[securityID] = ob
		}
	}
}

func (p *PacketProcessor) handleTrade(streamSeq int64, sendingTime uint64, receivedTime int64, msg *sbe.Message) {
	entries, ok := msg.Group("no_md_entries")
	if !ok {
		return
	}
	for entries.Next() {
		securityID, ok := fieldInt64(entries, "security_id")
		if !ok {
			continue
		}
		if p.securityIDFilter != nil && !p.securityIDFilter[securityID] {
			continue
		}
		ob := p.resolveBook(securityID)
		if ob == nil {
			continue
		}

		rptSeq, _ := fieldInt64(entries, "rpt_seq")
		price := fieldFloatPtr(entries, "md_entry_px")
		size := fieldIntPtr(entries, "md_entry_size")
		aggressorSide := fieldString(entries, "aggressor_side")

		ob.HandleTrade(sendingTime, receivedTime, streamSeq, rptSeq, price, size, aggressorSide)
		if p.OnTrade != nil {
			p.OnTrade(ob)
		}
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		if i, ok := asInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func fieldInt64(fs fieldSource, name string) (int64, bool) {
	f, ok := fs.Field(name)
	if !ok {
		return 0, false
	}
	v := f.Value()
	if v == nil {
		return 0, false
	}
	n, ok := asInt64(v)
	return n, ok
}

func fieldFloatPtr(fs fieldSource, name string) *float64 {
	f, ok := fs.Field(name)
	if !ok {
		return nil
	}
	v := f.Value()
	if v == nil {
		return nil
	}
	n, ok := asFloat64(v)
	if !ok {
		return nil
	}
	return &n
}

func fieldIntPtr(fs fieldSource, name string) *int64 {
	f, ok := fs.Field(name)
	if !ok {
		return nil
	}
	v := f.Value()
	if v == nil {
		return nil
	}
	n, ok := asInt64(v)
	if !ok {
		return nil
	}
	return &n
}

func fieldString(fs fieldSource, name string) string {
	f, ok := fs.Field(name)
	if !ok {
		return ""
	}
	s, _ := f.Value().(string)
	return s
}
