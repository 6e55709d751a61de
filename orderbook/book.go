// Copyright (c) 2024 Neomantra Corp

package orderbook

// Market data entry type and update action strings, as decoded from an
// MDEntryType/MDUpdateAction enum field's Value().
const (
	EntryTypeBid   = "Bid"
	EntryTypeOffer = "Offer"

	ActionNew    = "New"
	ActionChange = "Change"
	ActionDelete = "Delete"
)

// OrderBook is a single security's incremental-refresh book: a dense,
// fixed-depth array of price levels per side, plus the last trade and
// sequence bookkeeping needed to drop duplicates.
type OrderBook struct {
	SecurityID    int64
	Depth         int
	DisplayLevels int
	Description   string

	SendingTime        uint64
	ReceivedTime       int64
	StreamSequence     int64
	InstrumentSequence int64

	LastPrice         *float64
	LastSize          *int64
	LastAggressorSide string

	Bids   []Entry
	Offers []Entry
}

// New creates a book for securityID with the given depth, all levels
// empty. displayLevels defaults to depth.
func New(securityID int64, depth int, description string) *OrderBook {
	return &OrderBook{
		SecurityID:         securityID,
		Depth:              depth,
		DisplayLevels:      depth,
		Description:        description,
		StreamSequence:     -1,
		InstrumentSequence: -1,
		Bids:               emptyEntries(depth),
		Offers:             emptyEntries(depth),
	}
}

// Invalidate clears bookkeeping and every level, reserved for future gap
// recovery.
func (b *OrderBook) Invalidate() {
	b.SendingTime = 0
	b.ReceivedTime = 0
	b.StreamSequence = -1
	b.InstrumentSequence = -1
	b.Bids = emptyEntries(b.Depth)
	b.Offers = emptyEntries(b.Depth)
}

func (b *OrderBook) haveSeenSequence(instrumentSeq int64) bool {
	return instrumentSeq <= b.InstrumentSequence
}

// isGappedSequence can't detect gaps until trades, volume and statistics
// messages are also tracked, so it always reports no gap.
func (b *OrderBook) isGappedSequence(instrumentSeq int64) bool {
	return false
}

func (b *OrderBook) updateBookKeeping(sendingTime uint64, receivedTime, streamSeq, instrumentSeq int64) {
	if b.isGappedSequence(instrumentSeq) {
		b.Invalidate()
	}
	b.SendingTime = sendingTime
	b.ReceivedTime = receivedTime
	b.StreamSequence = streamSeq
	b.InstrumentSequence = instrumentSeq
}

func (b *OrderBook) side(entryType string) []Entry {
	if entryType == EntryTypeBid {
		return b.Bids
	}
	return b.Offers
}

func (b *OrderBook) setSide(entryType string, entries []Entry) {
	if entryType == EntryTypeBid {
		b.Bids = entries
	} else {
		b.Offers = entries
	}
}

// add inserts a new entry at 1-indexed level, shifting lower levels down
// and dropping the tail so the side stays exactly Depth long.
func (b *OrderBook) add(level int, entryType string, price *float64, size, numOrders *int64) {
	entries := b.side(entryType)
	idx := level - 1
	next := make([]Entry, 0, len(entries))
	next = append(next, entries[:idx]...)
	next = append(next, Entry{Price: price, Size: size, NumOrders: numOrders})
	next = append(next, entries[idx:]...)
	b.setSide(entryType, next[:len(entries)])
}

// change overwrites the entry at 1-indexed level in place.
func (b *OrderBook) change(level int, entryType string, price *float64, size, numOrders *int64) {
	entries := b.side(entryType)
	entries[level-1] = Entry{Price: price, Size: size, NumOrders: numOrders}
}

// delete removes the entry at 1-indexed level, shifting later levels up
// and appending a fresh empty entry at the tail.
func (b *OrderBook) delete(level int, entryType string) {
	entries := b.side(entryType)
	idx := level - 1
	next := make([]Entry, 0, len(entries))
	next = append(next, entries[:idx]...)
	next = append(next, entries[idx+1:]...)
	next = append(next, Entry{})
	b.setSide(entryType, next)
}

// HandleUpdate applies a single incremental-refresh book entry. It returns
// false (and leaves the book unchanged) for a stale or duplicate
// instrument sequence, an unrecognized entry type, or an unrecognized
// update action. Otherwise it reports whether level fell within
// DisplayLevels.
func (b *OrderBook) HandleUpdate(
	sendingTime uint64, receivedTime, streamSeq, instrumentSeq int64,
	level int, entryType, action string,
	price *float64, size, numOrders *int64,
) bool {
	if b.haveSeenSequence(instrumentSeq) {
		return false
	}
	if entryType != EntryTypeBid && entryType != EntryTypeOffer {
		return false
	}
	if action != ActionNew && action != ActionChange && action != ActionDelete {
		return false
	}
	if level < 1 || level > b.Depth {
		return false
	}

	b.updateBookKeeping(sendingTime, receivedTime, streamSeq, instrumentSeq)

	switch action {
	case ActionNew:
		b.add(level, entryType, price, size, numOrders)
	case ActionChange:
		b.change(level, entryType, price, size, numOrders)
	case ActionDelete:
		b.delete(level, entryType)
	}

	return level <= b.DisplayLevels
}

// HandleTrade records the last trade, subject to the same sequence gate
// as HandleUpdate. It returns false for a stale or duplicate instrument
// sequence.
func (b *OrderBook) HandleTrade(
	sendingTime uint64, receivedTime, streamSeq, instrumentSeq int64,
	price *float64, size *int64, aggressorSide string,
) bool {
	if b.haveSeenSequence(instrumentSeq) {
		return false
	}
	b.updateBookKeeping(sendingTime, receivedTime, streamSeq, instrumentSeq)
	b.LastPrice = price
	b.LastSize = size
	b.LastAggressorSide = aggressorSide
	return true
}
