package data_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/data"
)

var _ = Describe("CachedProvider", func() {
	var (
		provider *fakeProvider
		cached   *data.CachedProvider
	)

	BeforeEach(func() {
		viper.Set("cache.redis", false)
		Expect(common.SetupCache()).To(Succeed())

		provider = newFakeProvider()
		provider.series["005930"] = []*data.Observation{
			{Date: day(2026, 1, 2), Value: 0.02},
			{Date: day(2026, 1, 5), Value: -0.01},
		}
		provider.fail["000003"] = true
		cached = data.NewCachedProvider(provider)
	})

	It("only calls the underlying provider once", func() {
		first, err := cached.GetSeries(context.Background(), "005930", data.MetricChange, day(2026, 1, 1))
		Expect(err).To(BeNil())
		second, err := cached.GetSeries(context.Background(), "005930", data.MetricChange, day(2026, 1, 1))
		Expect(err).To(BeNil())

		Expect(provider.callCount("005930")).To(Equal(1))
		Expect(second).To(HaveLen(2))
		Expect(second[1].Date.Equal(first[1].Date)).To(BeTrue())
		Expect(second[1].Value).To(Equal(-0.01))
	})

	It("keys the cache by metric and begin", func() {
		_, err := cached.GetSeries(context.Background(), "005930", data.MetricChange, day(2026, 1, 1))
		Expect(err).To(BeNil())
		_, err = cached.GetSeries(context.Background(), "005930", data.MetricClose, day(2026, 1, 1))
		Expect(err).To(BeNil())
		_, err = cached.GetSeries(context.Background(), "005930", data.MetricChange, day(2025, 12, 1))
		Expect(err).To(BeNil())
		Expect(provider.callCount("005930")).To(Equal(3))
	})

	It("does not cache errors", func() {
		_, err := cached.GetSeries(context.Background(), "000003", data.MetricChange, day(2026, 1, 1))
		Expect(err).To(MatchError(errBoom))
		_, err = cached.GetSeries(context.Background(), "000003", data.MetricChange, day(2026, 1, 1))
		Expect(err).To(MatchError(errBoom))
		Expect(provider.callCount("000003")).To(Equal(2))
	})

	It("reports the wrapped data type", func() {
		Expect(cached.DataType()).To(Equal("fake"))
	})
})
