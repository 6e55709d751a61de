package sbe_test

import (
	"encoding/hex"

	"github.com/cmemdp/sbemdp-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	var buf []byte

	BeforeEach(func() {
		var err error
		buf, err = hex.DecodeString(testQuoteHex)
		Expect(err).To(BeNil())
	})

	It("decodes every field variant of a single message", func() {
		schema := loadTestSchema()
		parser := sbe.NewParser(schema)

		var got *sbe.Message
		for msg, err := range parser.Messages(buf, 0) {
			Expect(err).To(BeNil())
			got = msg
		}
		Expect(got).ToNot(BeNil())
		Expect(got.Name()).To(Equal("Quote"))
		Expect(got.TemplateID()).To(Equal(1))
		Expect(got.MessageSize()).To(Equal(len(buf)))

		tt, ok := got.Field("transact_time")
		Expect(ok).To(BeTrue())
		Expect(tt.Value()).To(Equal(uint64(123456789012345)))

		sym, ok := got.Field("symbol")
		Expect(ok).To(BeTrue())
		Expect(sym.Value()).To(Equal("AB"))

		price, ok := got.Field("price")
		Expect(ok).To(BeTrue())
		Expect(price.Value()).To(BeNumerically("~", 1.2345, 1e-6))

		side, ok := got.Field("side")
		Expect(ok).To(BeTrue())
		Expect(side.Value()).To(Equal("Offer"))
		Expect(side.Enumerant()).To(Equal("Offer"))

		flags, ok := got.Field("flags")
		Expect(ok).To(BeTrue())
		Expect(flags.Value()).To(Equal("FlagA, FlagB"))

		secID, ok := got.Field("security_id")
		Expect(ok).To(BeTrue())
		Expect(secID.Value()).To(BeNil())
	})

	It("exposes the repeating group via a mutable cursor", func() {
		schema := loadTestSchema()
		parser := sbe.NewParser(schema)

		var got *sbe.Message
		for msg := range parser.Messages(buf, 0) {
			got = msg
		}

		cursor, ok := got.Group("entries")
		Expect(ok).To(BeTrue())
		Expect(cursor.Len()).To(Equal(2))

		Expect(cursor.Next()).To(BeTrue())
		level, _ := cursor.Field("level")
		qty, _ := cursor.Field("qty")
		Expect(level.Value()).To(Equal(uint8(10)))
		Expect(qty.Value()).To(Equal(uint32(100)))

		Expect(cursor.Next()).To(BeTrue())
		level, _ = cursor.Field("level")
		qty, _ = cursor.Field("qty")
		Expect(level.Value()).To(Equal(uint8(20)))
		Expect(qty.Value()).To(Equal(uint32(200)))

		Expect(cursor.Next()).To(BeFalse())
	})

	It("materializes the group eagerly via Values", func() {
		schema := loadTestSchema()
		parser := sbe.NewParser(schema)

		var got *sbe.Message
		for msg := range parser.Messages(buf, 0) {
			got = msg
		}

		cursor, ok := got.Group("entries")
		Expect(ok).To(BeTrue())
		snapshots := cursor.Values()
		Expect(snapshots).To(HaveLen(2))
		Expect(snapshots[0].Fields["level"]).To(Equal(uint8(10)))
		Expect(snapshots[1].Fields["qty"]).To(Equal(uint32(200)))
	})

	It("counts messages without materializing them", func() {
		schema := loadTestSchema()
		parser := sbe.NewParser(schema)
		n, err := parser.Count(buf, 0)
		Expect(err).To(BeNil())
		Expect(n).To(Equal(1))
	})

	It("reports a decode error for an unknown template id", func() {
		schema := loadTestSchema()
		parser := sbe.NewParser(schema)
		bad := append([]byte(nil), buf...)
		bad[4] = 0xff // corrupt the template id
		bad[5] = 0xff

		var sawErr error
		for _, err := range parser.Messages(bad, 0) {
			if err != nil {
				sawErr = err
			}
		}
		Expect(sawErr).ToNot(BeNil())
	})
})
