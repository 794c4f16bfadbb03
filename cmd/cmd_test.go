package cmd

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("Commands", func() {
	It("runs through the day before the wall clock", func() {
		now, err := runClock("2026-01-05")
		Expect(err).To(BeNil())
		Expect(common.Yesterday(now, common.GetTimezone())).To(Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))

		_, err = runClock("January 5th")
		Expect(err).To(MatchError(common.ErrUnknownDateFormat))
	})

	It("plots the most recent points of a column", func() {
		series := portfolio.NewSeries("P")
		for idx := 1; idx <= 5; idx++ {
			series.Set(time.Date(2026, 1, idx, 0, 0, 0, 0, time.UTC), "P", decimal.NewFromInt(int64(1000+idx)))
		}

		plot, err := chart(series, "P", 3, 5)
		Expect(err).To(BeNil())
		Expect(plot).To(ContainSubstring("P 2026-01-03 to 2026-01-05"))

		_, err = chart(series, "KOSPI", 3, 5)
		Expect(err).To(HaveOccurred())
	})

	It("prints the effective configuration as TOML", func() {
		viper.Set("nav.anchor_date", "2026-01-02")
		viper.Set("store.kind", "workbook")
		DeferCleanup(func() {
			viper.Set("nav.anchor_date", "")
			viper.Set("store.kind", "")
		})

		effective, err := buildEffectiveConfig()
		Expect(err).To(BeNil())
		Expect(effective.Schedule).To(Equal(DefaultSchedule))
		Expect(effective.Nav.AnchorDate).To(Equal("2026-01-02"))
		Expect(effective.Nav.Portfolios).To(HaveLen(3))

		out, err := toml.Marshal(effective)
		Expect(err).To(BeNil())
		Expect(strings.Contains(string(out), "anchor_date")).To(BeTrue())
		Expect(string(out)).To(ContainSubstring("2026-01-02"))
		Expect(string(out)).To(ContainSubstring("KS11"))
	})
})
