package portfolio_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-nav/portfolio"
)

var _ = Describe("Resume", func() {
	var (
		cfg *portfolio.Config
		kst *time.Location
	)

	BeforeEach(func() {
		var err error
		kst, err = time.LoadLocation("Asia/Seoul")
		Expect(err).To(BeNil())
		cfg = &portfolio.Config{
			Portfolios: []*portfolio.Portfolio{
				{Name: "P", InitialValue: dec("1000")},
				{Name: "NEW", InitialValue: dec("500")},
			},
			AnchorDate: day(2025, 12, 30),
			Location:   kst,
		}
	})

	It("cold starts from the anchor date", func() {
		state, err := portfolio.Resume(portfolio.NewSeries(), cfg, time.Date(2026, 1, 6, 9, 0, 0, 0, kst))
		Expect(err).To(BeNil())
		Expect(state.IsContinuation).To(BeFalse())
		Expect(state.StartDate).To(Equal(day(2025, 12, 30)))
		Expect(state.EndDate).To(Equal(day(2026, 1, 5)))
		Expect(state.Seeds["P"].Equal(dec("1000"))).To(BeTrue())
	})

	It("continues from the last persisted row", func() {
		series := portfolio.NewSeries("P")
		series.Set(day(2025, 12, 30), "P", dec("1000"))
		series.Set(day(2026, 1, 2), "P", dec("1020"))

		state, err := portfolio.Resume(series, cfg, time.Date(2026, 1, 6, 9, 0, 0, 0, kst))
		Expect(err).To(BeNil())
		Expect(state.IsContinuation).To(BeTrue())
		Expect(state.StartDate).To(Equal(day(2026, 1, 2)))
		Expect(state.Seeds["P"].Equal(dec("1020"))).To(BeTrue())
		Expect(state.Seeds["NEW"].Equal(dec("500"))).To(BeTrue())
	})

	It("uses the market timezone to find yesterday", func() {
		// 2026-01-05 23:30 UTC is already 2026-01-06 in Seoul
		state, err := portfolio.Resume(portfolio.NewSeries(), cfg, time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC))
		Expect(err).To(BeNil())
		Expect(state.EndDate).To(Equal(day(2026, 1, 5)))
	})

	It("reports when there is nothing to do", func() {
		series := portfolio.NewSeries("P")
		series.Set(day(2026, 1, 5), "P", dec("1020"))

		state, err := portfolio.Resume(series, cfg, time.Date(2026, 1, 6, 9, 0, 0, 0, kst))
		Expect(err).To(MatchError(portfolio.ErrUpToDate))
		Expect(state.StartDate).To(Equal(state.EndDate))

		_, err = portfolio.Resume(series, cfg, time.Date(2026, 1, 5, 9, 0, 0, 0, kst))
		Expect(err).To(MatchError(portfolio.ErrUpToDate))
	})
})
