package portfolio_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("WeightTable", func() {
	DescribeTable("normalizing instrument codes",
		func(raw string, expected string, ok bool) {
			code, valid := portfolio.NormalizeCode(raw)
			Expect(valid).To(Equal(ok))
			Expect(code).To(Equal(expected))
		},
		Entry("pads short codes", "5930", "005930", true),
		Entry("trims whitespace", "  069500 ", "069500", true),
		Entry("keeps long codes", "A1234567", "A1234567", true),
		Entry("strips a float suffix", "5930.0", "005930", true),
		Entry("drops blank codes", "   ", "", false),
		Entry("drops nan", "NaN", "", false),
	)

	Context("with two snapshots", func() {
		var table *portfolio.WeightTable

		BeforeEach(func() {
			table = portfolio.NewWeightTable([]*portfolio.WeightRecord{
				{Portfolio: "P", EffectiveDate: day(2026, 1, 5), InstrumentCode: "000002", WeightPercent: dec("100")},
				{Portfolio: "P", EffectiveDate: day(2026, 1, 1), InstrumentCode: "000001", WeightPercent: dec("60")},
				{Portfolio: "P", EffectiveDate: day(2026, 1, 1), InstrumentCode: "000002", WeightPercent: dec("40")},
			})
		})

		It("orders snapshot dates", func() {
			Expect(table.Len()).To(Equal(2))
			Expect(table.Dates()).To(Equal([]time.Time{day(2026, 1, 1), day(2026, 1, 5)}))
			Expect(table.Instruments()).To(Equal([]string{"000001", "000002"}))
		})

		It("never uses the snapshot of the same date", func() {
			_, _, ok := table.EffectiveBefore(day(2026, 1, 1))
			Expect(ok).To(BeFalse())

			weights, effective, ok := table.EffectiveBefore(day(2026, 1, 5))
			Expect(ok).To(BeTrue())
			Expect(effective).To(Equal(day(2026, 1, 1)))
			Expect(weights).To(HaveLen(2))
			Expect(weights["000001"].Equal(dec("60"))).To(BeTrue())

			_, effective, _ = table.EffectiveBefore(day(2026, 1, 6))
			Expect(effective).To(Equal(day(2026, 1, 5)))
		})

		It("forward fills between snapshots", func() {
			for _, dt := range []time.Time{day(2026, 1, 2), day(2026, 1, 3), day(2026, 1, 4)} {
				weights, effective, ok := table.EffectiveBefore(dt)
				Expect(ok).To(BeTrue())
				Expect(effective).To(Equal(day(2026, 1, 1)))
				Expect(weights).To(HaveLen(2))
			}
		})

		It("drops instruments a later snapshot omits", func() {
			weights, _, _ := table.EffectiveBefore(day(2026, 2, 1))
			Expect(weights).To(HaveLen(1))
			Expect(weights).ToNot(HaveKey("000001"))
		})

		It("returns the snapshot in force at a close", func() {
			Expect(table.EffectiveOn(day(2025, 12, 31))).To(BeEmpty())
			Expect(table.EffectiveOn(day(2026, 1, 1))).To(HaveLen(2))
			Expect(table.EffectiveOn(day(2026, 1, 5))).To(HaveLen(1))
		})
	})

	It("keeps the last duplicate record", func() {
		table := portfolio.NewWeightTable([]*portfolio.WeightRecord{
			{Portfolio: "P", EffectiveDate: day(2026, 1, 1), InstrumentCode: "000001", WeightPercent: dec("10")},
			{Portfolio: "P", EffectiveDate: day(2026, 1, 1), InstrumentCode: "000001", WeightPercent: dec("20")},
		})
		weights := table.EffectiveOn(day(2026, 1, 1))
		Expect(weights["000001"].Equal(dec("20"))).To(BeTrue())
	})

	It("groups records by portfolio", func() {
		groups := portfolio.GroupWeights([]*portfolio.WeightRecord{
			{Portfolio: "A", InstrumentCode: "000001"},
			{Portfolio: "B", InstrumentCode: "000001"},
			{Portfolio: "A", InstrumentCode: "000002"},
		})
		Expect(groups).To(HaveLen(2))
		Expect(groups["A"]).To(HaveLen(2))
		Expect(groups["B"]).To(HaveLen(1))
	})
})
