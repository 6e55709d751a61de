package orderbook_test

import (
	"github.com/cmemdp/sbemdp-go/orderbook"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func prices(entries []orderbook.Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		if e.Price == nil {
			out[i] = nil
			continue
		}
		out[i] = *e.Price
	}
	return out
}

var _ = Describe("OrderBook", func() {
	It("always holds exactly depth_levels entries per side", func() {
		ob := orderbook.New(1, 3, "ESM6")
		Expect(ob.Bids).To(HaveLen(3))
		Expect(ob.Offers).To(HaveLen(3))
	})

	It("runs the S5 book-update scenario", func() {
		ob := orderbook.New(1, 3, "ESM6")

		// seed three levels on each side via Change
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(3), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 2, 2, orderbook.EntryTypeBid, orderbook.ActionChange, f64(2), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 3, 3, orderbook.EntryTypeBid, orderbook.ActionChange, f64(1), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 4, 1, orderbook.EntryTypeOffer, orderbook.ActionChange, f64(6), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 5, 2, orderbook.EntryTypeOffer, orderbook.ActionChange, f64(7), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 6, 3, orderbook.EntryTypeOffer, orderbook.ActionChange, f64(8), i64(1), i64(1))).To(BeTrue())

		Expect(prices(ob.Bids)).To(Equal([]any{3.0, 2.0, 1.0}))
		Expect(prices(ob.Offers)).To(Equal([]any{6.0, 7.0, 8.0}))

		visible := ob.HandleUpdate(1, 1, 1, 7, 1, orderbook.EntryTypeOffer, orderbook.ActionNew, f64(5), i64(1), i64(1))
		Expect(visible).To(BeTrue())
		Expect(prices(ob.Offers)).To(Equal([]any{5.0, 6.0, 7.0}))

		visible = ob.HandleUpdate(1, 1, 1, 8, 1, orderbook.EntryTypeOffer, orderbook.ActionDelete, nil, nil, nil)
		Expect(visible).To(BeTrue())
		Expect(prices(ob.Offers)).To(Equal([]any{6.0, 7.0, nil}))

		// a duplicate instrument_seq (equal to last seen) is a no-op
		stale := ob.HandleUpdate(1, 1, 1, 8, 2, orderbook.EntryTypeOffer, orderbook.ActionChange, f64(99), i64(1), i64(1))
		Expect(stale).To(BeFalse())
		Expect(prices(ob.Offers)).To(Equal([]any{6.0, 7.0, nil}))
	})

	It("drops stale or duplicate instrument sequences without mutation", func() {
		ob := orderbook.New(1, 2, "ESM6")
		Expect(ob.HandleUpdate(1, 1, 1, 5, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(10), i64(1), i64(1))).To(BeTrue())

		before := prices(ob.Bids)
		Expect(ob.HandleUpdate(1, 1, 1, 5, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(99), i64(1), i64(1))).To(BeFalse())
		Expect(ob.HandleUpdate(1, 1, 1, 3, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(99), i64(1), i64(1))).To(BeFalse())
		Expect(prices(ob.Bids)).To(Equal(before))
	})

	It("rejects unrecognized entry types and actions as no-ops", func() {
		ob := orderbook.New(1, 2, "ESM6")
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, "Implied", orderbook.ActionChange, f64(1), i64(1), i64(1))).To(BeFalse())
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, orderbook.EntryTypeBid, "Overlay", f64(1), i64(1), i64(1))).To(BeFalse())
	})

	It("reports visibility only within display levels", func() {
		ob := orderbook.New(1, 5, "ESM6")
		ob.DisplayLevels = 2
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(1), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 2, 5, orderbook.EntryTypeBid, orderbook.ActionChange, f64(1), i64(1), i64(1))).To(BeFalse())
	})

	It("keeps remaining entries contiguous after a delete", func() {
		ob := orderbook.New(1, 3, "ESM6")
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(3), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 2, 2, orderbook.EntryTypeBid, orderbook.ActionChange, f64(2), i64(1), i64(1))).To(BeTrue())
		Expect(ob.HandleUpdate(1, 1, 1, 3, 3, orderbook.EntryTypeBid, orderbook.ActionChange, f64(1), i64(1), i64(1))).To(BeTrue())

		Expect(ob.HandleUpdate(1, 1, 1, 4, 1, orderbook.EntryTypeBid, orderbook.ActionDelete, nil, nil, nil)).To(BeTrue())
		Expect(prices(ob.Bids)).To(Equal([]any{2.0, 1.0, nil}))
	})

	It("records trades subject to the same sequence gate", func() {
		ob := orderbook.New(1, 2, "ESM6")
		Expect(ob.HandleTrade(1, 1, 1, 1, f64(100.5), i64(10), "Buy")).To(BeTrue())
		Expect(*ob.LastPrice).To(Equal(100.5))
		Expect(*ob.LastSize).To(Equal(int64(10)))
		Expect(ob.LastAggressorSide).To(Equal("Buy"))

		Expect(ob.HandleTrade(1, 1, 1, 1, f64(200), i64(5), "Sell")).To(BeFalse())
		Expect(*ob.LastPrice).To(Equal(100.5))
	})

	It("clears bookkeeping and levels on Invalidate", func() {
		ob := orderbook.New(1, 2, "ESM6")
		Expect(ob.HandleUpdate(1, 1, 1, 1, 1, orderbook.EntryTypeBid, orderbook.ActionChange, f64(3), i64(1), i64(1))).To(BeTrue())
		ob.Invalidate()
		Expect(ob.InstrumentSequence).To(Equal(int64(-1)))
		Expect(prices(ob.Bids)).To(Equal([]any{nil, nil}))
	})
})
