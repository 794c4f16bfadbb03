package portfolio_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("Compound", func() {
	var (
		d0, d1, d2, d3 time.Time
		weights        *portfolio.WeightTable
	)

	BeforeEach(func() {
		d0 = day(2025, 12, 30)
		d1 = day(2025, 12, 31)
		d2 = day(2026, 1, 2)
		d3 = day(2026, 1, 5)
		weights = portfolio.NewWeightTable([]*portfolio.WeightRecord{
			{Portfolio: "P", EffectiveDate: d0, InstrumentCode: "A", WeightPercent: dec("100")},
		})
	})

	It("emits the seed and the first compounded value on a cold start", func() {
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:      dec("1000"),
			StartDate: d0,
			CalcDates: []time.Time{d1},
			Weights:   weights,
			Changes:   changeMap{"A": {d1: 0.02}},
		})
		Expect(points).To(HaveLen(2))
		Expect(points[0].Date).To(Equal(d0))
		Expect(points[0].Value.StringFixed(2)).To(Equal("1000.00"))
		Expect(points[1].Date).To(Equal(d1))
		Expect(points[1].Value.StringFixed(2)).To(Equal("1020.00"))
	})

	It("continues from a published value with forward filled weights", func() {
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:           dec("1020"),
			StartDate:      d1,
			IsContinuation: true,
			CalcDates:      []time.Time{d2},
			Weights:        weights,
			Changes:        changeMap{"A": {d2: -0.01}},
		})
		Expect(points).To(HaveLen(1))
		Expect(points[0].Date).To(Equal(d2))
		Expect(points[0].Value.StringFixed(2)).To(Equal("1009.80"))
	})

	It("treats a missing change as a zero return", func() {
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:           dec("1000"),
			StartDate:      d0,
			IsContinuation: true,
			CalcDates:      []time.Time{d1, d2, d3},
			Weights:        weights,
			Changes:        changeMap{"A": {d1: 0.02, d2: -0.01}},
		})
		Expect(points).To(HaveLen(3))
		Expect(points[2].Date).To(Equal(d3))
		Expect(points[2].Value.Equal(points[1].Value)).To(BeTrue())
	})

	It("does not use a snapshot on its own date", func() {
		lateWeights := portfolio.NewWeightTable([]*portfolio.WeightRecord{
			{Portfolio: "P", EffectiveDate: d1, InstrumentCode: "A", WeightPercent: dec("100")},
		})
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:           dec("1000"),
			StartDate:      d0,
			IsContinuation: true,
			CalcDates:      []time.Time{d1, d2},
			Weights:        lateWeights,
			Changes:        changeMap{"A": {d1: 0.5, d2: 0.1}},
		})
		Expect(points[0].Value.StringFixed(2)).To(Equal("1000.00"))
		Expect(points[1].Value.StringFixed(2)).To(Equal("1100.00"))
	})

	It("weights the instruments of the snapshot", func() {
		mixed := portfolio.NewWeightTable([]*portfolio.WeightRecord{
			{Portfolio: "P", EffectiveDate: d0, InstrumentCode: "A", WeightPercent: dec("60")},
			{Portfolio: "P", EffectiveDate: d0, InstrumentCode: "B", WeightPercent: dec("30")},
			{Portfolio: "P", EffectiveDate: d0, InstrumentCode: "C", WeightPercent: dec("10")},
		})
		ret := portfolio.DailyReturn(mixed.EffectiveOn(d0), changeMap{
			"A": {d1: 0.01},
			"B": {d1: -0.02},
		}, d1)
		// 60*0.01 + 30*-0.02 + C missing
		Expect(ret.IsZero()).To(BeTrue())

		ret = portfolio.DailyReturn(mixed.EffectiveOn(d0), changeMap{
			"A": {d1: 0.02},
			"C": {d1: 0.05},
		}, d1)
		Expect(ret.Equal(dec("0.017"))).To(BeTrue())
	})

	It("ignores calc dates on or before the start", func() {
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:           dec("1000"),
			StartDate:      d1,
			IsContinuation: true,
			CalcDates:      []time.Time{d0, d1, d2},
			Weights:        weights,
			Changes:        changeMap{"A": {d0: 0.5, d1: 0.5, d2: 0.01}},
		})
		Expect(points).To(HaveLen(1))
		Expect(points[0].Value.StringFixed(2)).To(Equal("1010.00"))
	})

	It("returns zero growth without weights", func() {
		points := portfolio.Compound(&portfolio.CompoundInput{
			Seed:      dec("1518.52"),
			StartDate: d0,
			CalcDates: []time.Time{d1, d2},
			Weights:   portfolio.NewWeightTable(nil),
			Changes:   changeMap{"A": {d1: 0.02}},
		})
		Expect(points).To(HaveLen(3))
		Expect(points[2].Value.Equal(dec("1518.52"))).To(BeTrue())
	})
})
