package sbe_test

import (
	"strings"

	"github.com/cmemdp/sbemdp-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testSchemaXML declares one message ("Quote", template id 1) exercising
// every field variant the decoder must support: a plain scalar, a fixed
// NUL-padded string, a decimal composite (mantissa/exponent), a
// char-encoded enum, a uint8 bitset, a nullable int32, and a repeating
// group.
const testSchemaXML = `<?xml version="1.0" encoding="UTF-8"?>
<messageSchema package="test" version="0">
  <types>
    <composite name="messageHeader">
      <type name="blockLength" primitiveType="uint16"/>
      <type name="templateId" primitiveType="uint16"/>
      <type name="schemaId" primitiveType="uint16"/>
      <type name="version" primitiveType="uint16"/>
    </composite>
    <composite name="groupSizeEncoding">
      <type name="blockLength" primitiveType="uint16"/>
      <type name="numInGroup" primitiveType="uint16"/>
    </composite>
    <composite name="PRICE9">
      <type name="mantissa" primitiveType="int64"/>
      <type name="exponent" primitiveType="int8" presence="constant">-9</type>
    </composite>
    <type name="uint64" primitiveType="uint64"/>
    <type name="uint32" primitiveType="uint32"/>
    <type name="uint8" primitiveType="uint8"/>
    <type name="SymbolType" primitiveType="char" length="4" semanticType="String"/>
    <type name="SecurityIDType" primitiveType="int32" nullValue="2147483647"/>
    <enum name="Side" encodingType="char">
      <validValue name="Bid">0</validValue>
      <validValue name="Offer">1</validValue>
    </enum>
    <set name="Flags" encodingType="uint8">
      <choice name="FlagA">0</choice>
      <choice name="FlagB">1</choice>
    </set>
  </types>
  <message name="Quote" id="1" blockLength="26">
    <field name="transactTime" id="1" type="uint64"/>
    <field name="symbol" id="2" type="SymbolType"/>
    <field name="price" id="3" type="PRICE9"/>
    <field name="side" id="4" type="Side"/>
    <field name="flags" id="5" type="Flags"/>
    <field name="securityId" id="6" type="SecurityIDType"/>
    <group name="entries" id="10" dimensionType="groupSizeEncoding">
      <field name="level" id="11" type="uint8"/>
      <field name="qty" id="12" type="uint32"/>
    </group>
  </message>
</messageSchema>
`

// testQuoteHex is one "Quote" message: transactTime=123456789012345,
// symbol="AB", price=1.2345 (mantissa 1234500000 * 10^-9), side=Offer,
// flags=FlagA|FlagB, securityId=null, and two group entries
// (level=10,qty=100) and (level=20,qty=200).
const testQuoteHex = "32001a0001000000000079df0d864870000041420000a0f99449000000003103ffffff7f050002000a6400000014c8000000"

func loadTestSchema() *sbe.Schema {
	schema, err := sbe.Load(sbe.LoaderConfig{Reader: strings.NewReader(testSchemaXML), Endian: sbe.LittleEndian})
	Expect(err).To(BeNil())
	return schema
}

var _ = Describe("Load", func() {
	It("parses types, composites, enums, sets, messages and groups", func() {
		schema := loadTestSchema()
		msg, ok := schema.MessageByTemplateID(1)
		Expect(ok).To(BeTrue())
		Expect(msg.Name).To(Equal("Quote"))
		Expect(msg.HeaderSize).To(Equal(10))
	})

	It("rejects a schema with no messageHeader composite", func() {
		_, err := sbe.Load(sbe.LoaderConfig{
			Reader: strings.NewReader(`<messageSchema><types></types></messageSchema>`),
			Endian: sbe.LittleEndian,
		})
		Expect(err).ToNot(BeNil())
	})

	It("rejects BigEndian", func() {
		_, err := sbe.Load(sbe.LoaderConfig{Reader: strings.NewReader(testSchemaXML), Endian: sbe.BigEndian})
		Expect(err).ToNot(BeNil())
	})

	It("requires one of XMLPath, ArtifactPath, or Reader", func() {
		_, err := sbe.Load(sbe.LoaderConfig{Endian: sbe.LittleEndian})
		Expect(err).ToNot(BeNil())
	})
})
