package data_test

import (
	"context"
	"errors"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-nav/data"
)

const tiingoPrices = `[
	{"date":"2025-12-29T00:00:00.000Z","close":100.0,"high":101.0,"low":99.0,"open":99.5,"volume":1000,"adjClose":100.0},
	{"date":"2025-12-30T00:00:00.000Z","close":102.0,"high":103.0,"low":100.0,"open":100.0,"volume":1000,"adjClose":102.0},
	{"date":"2026-01-02T00:00:00.000Z","close":96.9,"high":102.0,"low":96.0,"open":101.0,"volume":1000,"adjClose":96.9}
]`

var _ = Describe("Tiingo", func() {
	var (
		ctx    context.Context
		tiingo *data.Tiingo
		begin  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		tiingo = data.NewTiingo("TEST", "https://tiingo.test/")
		begin = time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)
	})

	Context("when the request succeeds", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", "https://tiingo.test/tiingo/daily/SPY/prices?startDate=2025-12-30&token=TEST",
				httpmock.NewStringResponder(200, tiingoPrices))
			httpmock.RegisterResponder("GET", "https://tiingo.test/tiingo/daily/SPY/prices?startDate=2025-12-16&token=TEST",
				httpmock.NewStringResponder(200, tiingoPrices))
		})

		It("returns closes from begin", func() {
			series, err := tiingo.GetSeries(ctx, "SPY", data.MetricClose, begin)
			Expect(err).To(BeNil())
			Expect(series).To(HaveLen(2))
			Expect(series[0].Date).To(Equal(begin))
			Expect(series[0].Value).To(Equal(102.0))
			Expect(series[1].Date).To(Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
		})

		It("returns close to close changes using the prior close", func() {
			series, err := tiingo.GetSeries(ctx, "SPY", data.MetricChange, begin)
			Expect(err).To(BeNil())
			Expect(series).To(HaveLen(2))
			Expect(series[0].Date).To(Equal(begin))
			Expect(series[0].Value).To(BeNumerically("~", 0.02, 1e-9))
			Expect(series[1].Value).To(BeNumerically("~", -0.05, 1e-9))
		})
	})

	It("reports the status code when tiingo fails", func() {
		httpmock.RegisterResponder("GET", "https://tiingo.test/tiingo/daily/BAD/prices?startDate=2025-12-30&token=TEST",
			httpmock.NewStringResponder(404, `{"detail":"not found"}`))
		_, err := tiingo.GetSeries(ctx, "BAD", data.MetricClose, begin)
		Expect(errors.Is(err, data.ErrInvalidStatusCode)).To(BeTrue())
	})

	It("errors on malformed json", func() {
		httpmock.RegisterResponder("GET", "https://tiingo.test/tiingo/daily/BAD/prices?startDate=2025-12-30&token=TEST",
			httpmock.NewStringResponder(200, `not json`))
		_, err := tiingo.GetSeries(ctx, "BAD", data.MetricClose, begin)
		Expect(err).ToNot(BeNil())
	})

	It("rejects unknown metrics", func() {
		_, err := tiingo.GetSeries(ctx, "SPY", data.Metric("Volume"), begin)
		Expect(err).To(MatchError(data.ErrUnsupportedMetric))
	})
})
