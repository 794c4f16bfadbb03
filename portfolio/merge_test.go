package portfolio_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("Merge", func() {
	var old *portfolio.Series

	BeforeEach(func() {
		old = portfolio.NewSeries("P", "KOSPI")
		old.Set(day(2026, 1, 2), "P", dec("9.99"))
		old.Set(day(2026, 1, 2), "KOSPI", dec("2500"))
		old.Set(day(2026, 1, 5), "P", dec("10.00"))
		old.Set(day(2026, 1, 5), "KOSPI", dec("2510"))
	})

	It("prefers freshly computed values", func() {
		fresh := portfolio.NewSeries("P")
		fresh.Set(day(2026, 1, 5), "P", dec("10.50"))
		merged := portfolio.Merge(old, fresh)

		val, ok := merged.Value(day(2026, 1, 5), "P")
		Expect(ok).To(BeTrue())
		Expect(val.StringFixed(2)).To(Equal("10.50"))
	})

	It("replaces the whole row of an overlapping date", func() {
		fresh := portfolio.NewSeries("P")
		fresh.Set(day(2026, 1, 5), "P", dec("10.50"))
		merged := portfolio.Merge(old, fresh)

		_, ok := merged.Value(day(2026, 1, 5), "KOSPI")
		Expect(ok).To(BeFalse())
		val, _ := merged.Value(day(2026, 1, 2), "KOSPI")
		Expect(val.Equal(dec("2500"))).To(BeTrue())
	})

	It("keeps one row per date in ascending order", func() {
		fresh := portfolio.NewSeries("P", "Q")
		fresh.Set(day(2026, 1, 6), "Q", dec("1"))
		fresh.Set(day(2026, 1, 5), "P", dec("10.5"))
		fresh.Set(day(2025, 12, 30), "P", dec("9"))
		merged := portfolio.Merge(old, fresh)

		Expect(merged.Len()).To(Equal(4))
		for idx := 1; idx < merged.Len(); idx++ {
			Expect(merged.Rows[idx-1].Date.Before(merged.Rows[idx].Date)).To(BeTrue())
		}
		Expect(merged.Columns).To(Equal([]string{"P", "KOSPI", "Q"}))
	})

	DescribeTable("rounds half to even to two places",
		func(raw string, expected string) {
			fresh := portfolio.NewSeries("P")
			fresh.Set(day(2026, 1, 7), "P", dec(raw))
			merged := portfolio.Merge(nil, fresh)
			val, _ := merged.Value(day(2026, 1, 7), "P")
			Expect(val.StringFixed(2)).To(Equal(expected))
		},
		Entry("down", "1009.8049", "1009.80"),
		Entry("up", "1009.806", "1009.81"),
		Entry("half to even down", "1.125", "1.12"),
		Entry("half to even up", "1.135", "1.14"),
	)

	It("is idempotent", func() {
		fresh := portfolio.NewSeries("P")
		fresh.Set(day(2026, 1, 6), "P", dec("10.123456"))
		once := portfolio.Merge(old, fresh)
		twice := portfolio.Merge(once, fresh)

		Expect(twice.Columns).To(Equal(once.Columns))
		Expect(twice.Len()).To(Equal(once.Len()))
		for idx, row := range once.Rows {
			Expect(twice.Rows[idx].Date).To(Equal(row.Date))
			Expect(twice.Rows[idx].Values).To(HaveLen(len(row.Values)))
			for name, val := range row.Values {
				Expect(twice.Rows[idx].Values[name].Equal(val)).To(BeTrue())
			}
		}
	})
})
