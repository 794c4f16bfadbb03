package portfolio_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("Series", func() {
	var series *portfolio.Series

	BeforeEach(func() {
		series = portfolio.NewSeries("P", "P")
		series.Set(day(2026, 1, 5), "P", dec("3"))
		series.Set(day(2026, 1, 1), "P", dec("1"))
		series.Set(day(2026, 1, 2), "KOSPI", dec("2500"))
		series.Set(day(2026, 1, 2), "P", dec("2"))
	})

	It("keeps rows sorted and columns unique", func() {
		Expect(series.Columns).To(Equal([]string{"P", "KOSPI"}))
		Expect(series.Len()).To(Equal(3))
		Expect(series.Rows[0].Date).To(Equal(day(2026, 1, 1)))
		Expect(series.Last().Date).To(Equal(day(2026, 1, 5)))
	})

	It("returns the tail", func() {
		tail := series.Tail(2)
		Expect(tail.Len()).To(Equal(2))
		Expect(tail.Rows[0].Date).To(Equal(day(2026, 1, 2)))
		Expect(series.Tail(10).Len()).To(Equal(3))
	})

	It("selects rows between two dates", func() {
		Expect(series.Between(day(2026, 1, 2), day(2026, 1, 5)).Len()).To(Equal(2))
		Expect(series.Between(time.Time{}, day(2026, 1, 2)).Len()).To(Equal(2))
		Expect(series.Between(day(2026, 1, 3), time.Time{}).Rows[0].Date).To(Equal(day(2026, 1, 5)))
	})

	It("converts to a dataframe with NaN for missing values", func() {
		df := series.DataFrame()
		Expect(df.Len()).To(Equal(3))
		kospi := df.Column("KOSPI")
		Expect(math.IsNaN(kospi[0])).To(BeTrue())
		Expect(kospi[1]).To(Equal(2500.0))
	})

	It("lists the points of one column", func() {
		points := series.Points("KOSPI")
		Expect(points).To(HaveLen(1))
		Expect(points[0].Date).To(Equal(day(2026, 1, 2)))
	})

	It("has no last row when empty", func() {
		Expect(portfolio.NewSeries().Last()).To(BeNil())
	})
})

var _ = Describe("Config", func() {
	AfterEach(func() {
		viper.Set("nav.anchor_date", "")
		viper.Set("nav.portfolios", nil)
		viper.Set("nav.benchmarks", nil)
	})

	It("falls back to the published defaults", func() {
		cfg, err := portfolio.ConfigFromViper()
		Expect(err).To(BeNil())
		Expect(cfg.Portfolios).To(HaveLen(3))
		Expect(cfg.Portfolio("트루밸류").InitialValue.Equal(dec("2021.31"))).To(BeTrue())
		Expect(cfg.AnchorDate).To(Equal(day(2025, 12, 30)))
		Expect(cfg.SeriesNames()).To(Equal([]string{"트루밸류", "Value ESG", "자문형 랩", "KOSPI", "KOSDAQ"}))
	})

	It("reads portfolios and benchmarks in order", func() {
		viper.Set("nav.anchor_date", "2026-01-02")
		viper.Set("nav.portfolios", []map[string]any{
			{"name": "B", "initial_value": 1000.5},
			{"name": "A", "initial_value": 100},
		})
		viper.Set("nav.benchmarks", []map[string]any{
			{"name": "S&P 500", "symbol": "SPY"},
		})

		cfg, err := portfolio.ConfigFromViper()
		Expect(err).To(BeNil())
		Expect(cfg.AnchorDate).To(Equal(day(2026, 1, 2)))
		Expect(cfg.Portfolios[0].Name).To(Equal("B"))
		Expect(cfg.Portfolios[0].InitialValue.Equal(dec("1000.5"))).To(BeTrue())
		Expect(cfg.Benchmarks[0].Symbol).To(Equal("SPY"))
	})

	It("rejects duplicate series names", func() {
		viper.Set("nav.portfolios", []map[string]any{
			{"name": "KOSPI", "initial_value": 1000},
		})
		_, err := portfolio.ConfigFromViper()
		Expect(err).To(MatchError(portfolio.ErrInvalidConfig))
	})

	It("rejects bad anchor dates", func() {
		viper.Set("nav.anchor_date", "yesterday")
		_, err := portfolio.ConfigFromViper()
		Expect(err).To(MatchError(portfolio.ErrInvalidConfig))
	})
})
