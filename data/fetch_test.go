package data_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-nav/data"
)

var errBoom = errors.New("boom")

// fakeProvider answers from an in-memory map and counts calls per symbol
type fakeProvider struct {
	series map[string][]*data.Observation
	fail   map[string]bool
	calls  map[string]int
	locker sync.Mutex
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		series: make(map[string][]*data.Observation),
		fail:   make(map[string]bool),
		calls:  make(map[string]int),
	}
}

func (f *fakeProvider) DataType() string {
	return "fake"
}

func (f *fakeProvider) GetSeries(ctx context.Context, symbol string, metric data.Metric, begin time.Time) ([]*data.Observation, error) {
	f.locker.Lock()
	defer f.locker.Unlock()
	f.calls[symbol]++
	if f.fail[symbol] {
		return nil, errBoom
	}
	return f.series[symbol], nil
}

func (f *fakeProvider) callCount(symbol string) int {
	f.locker.Lock()
	defer f.locker.Unlock()
	return f.calls[symbol]
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Fetch", func() {
	var (
		provider *fakeProvider
		begin    time.Time
	)

	BeforeEach(func() {
		provider = newFakeProvider()
		begin = day(2026, 1, 1)
		provider.series["000001"] = []*data.Observation{{Date: day(2026, 1, 2), Value: 0.01}}
		provider.series["000002"] = []*data.Observation{}
		provider.fail["000003"] = true
	})

	It("keeps going when a symbol fails", func() {
		report := data.Fetch(context.Background(), provider, []string{"000003", "000001", "000002"}, data.MetricChange, begin)
		Expect(report.Results).To(HaveLen(3))
		Expect(report.Results[0].Symbol).To(Equal("000001"))
		Expect(report.Results[2].Symbol).To(Equal("000003"))

		Expect(report.Succeeded()).To(HaveLen(2))
		failed := report.Failed()
		Expect(failed).To(HaveLen(1))
		Expect(failed[0].Symbol).To(Equal("000003"))
		Expect(failed[0].Err).To(MatchError(errBoom))
	})

	It("only reports non-empty series", func() {
		report := data.Fetch(context.Background(), provider, []string{"000001", "000002", "000003"}, data.MetricChange, begin)
		series := report.Series()
		Expect(series).To(HaveLen(1))
		Expect(series).To(HaveKey("000001"))
		report.Log(log.Logger)
	})

	It("fetches each symbol once", func() {
		report := data.Fetch(context.Background(), provider, []string{"000001", " 000001", "000001", ""}, data.MetricChange, begin)
		Expect(report.Results).To(HaveLen(1))
		Expect(provider.callCount("000001")).To(Equal(1))
	})

	It("handles more symbols than the concurrency limit", func() {
		symbols := make([]string, 0, 25)
		for ii := 0; ii < 25; ii++ {
			symbols = append(symbols, string(rune('A'+ii)))
		}
		report := data.Fetch(context.Background(), provider, symbols, data.MetricClose, begin)
		Expect(report.Results).To(HaveLen(25))
		Expect(report.Failed()).To(BeEmpty())
		Expect(report.Series()).To(BeEmpty())
	})
})
