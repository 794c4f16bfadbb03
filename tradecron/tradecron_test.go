package tradecron_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/tradecron"
)

var (
	seoul, _ = time.LoadLocation("Asia/Seoul")
	holidays = []string{"2025-12-31", "2026-01-01", "2026-01-09=1200", "2026-02-16", "2026-02-17", "2026-02-18"}
)

func kst(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, seoul)
}

func krxCalendar() *tradecron.Calendar {
	cal := tradecron.NewCalendar(tradecron.KRXHours, seoul)
	Expect(cal.LoadHolidays(holidays)).To(Succeed())
	return cal
}

var _ = Describe("Tradecron", func() {
	DescribeTable("when parsing tradecron spec",
		func(spec string, hours tradecron.MarketHours, expectedTimeSpec string, expectedTimeFlag string, expectedDateFlag string, expectedError error) {
			cron, err := tradecron.New(spec, tradecron.NewCalendar(hours, seoul))
			if expectedError == nil {
				Expect(err).To(BeNil())
				Expect(cron.ScheduleString).To(Equal(spec))
				Expect(cron.TimeSpec).To(Equal(expectedTimeSpec))
				Expect(cron.TimeFlag).To(Equal(expectedTimeFlag))
				Expect(cron.DateFlag).To(Equal(expectedDateFlag))
			} else {
				Expect(err).To(MatchError(expectedError))
			}
		},
		Entry("Daily every 5 minutes", "*/5 * * * *", tradecron.KRXHours, "*/5 * * * *", "", "", nil),
		Entry("Daily every 5 minutes brief form", "*/5", tradecron.KRXHours, "*/5 * * * *", "", "", nil),
		Entry("Daily every 5 minutes 3 of 5 fields specified", "*/5 * *", tradecron.KRXHours, "*/5 * * * *", "", "", nil),
		Entry("Daily every 5 minutes trailing whitespace", "*/5 ", tradecron.KRXHours, "*/5 * * * *", "", "", nil),
		Entry("Daily every 5 minutes leading whitespace", " */5", tradecron.KRXHours, "*/5 * * * *", "", "", nil),
		Entry("Empty spec", "  ", tradecron.KRXHours, "", "", "", tradecron.ErrEmptySpec),
		Entry("At market open", "@open", tradecron.KRXHours, "0 9 * * *", "@open", "", nil),
		Entry("5 min after market open brief form", "@open 5", tradecron.KRXHours, "5 9 * * *", "@open", "", nil),
		Entry("Daily 5 minutes before market open, US hours", "@open -5 0 * * *", tradecron.RegularHours, "25 9 * * *", "@open", "", nil),
		Entry("Daily 90 minutes after market open, US hours", "@open 90 0 * * *", tradecron.RegularHours, "0 11 * * *", "@open", "", nil),
		Entry("Daily 1 hour before market open", "@open 0 -1 * * *", tradecron.KRXHours, "0 8 * * *", "@open", "", nil),
		Entry("Daily 15 hours after market open", "@open 0 15 * * *", tradecron.KRXHours, "", "", "", tradecron.ErrFieldOutOfBounds),
		Entry("Daily 10 hours before market open", "@open 0 -10 * * *", tradecron.KRXHours, "", "", "", tradecron.ErrFieldOutOfBounds),
		Entry("30 minutes after the close on weekdays", "30 @close * * 1-5", tradecron.KRXHours, "0 16 * * 1-5", "@close", "", nil),
		Entry("Daily 5 minutes before market close", "@close -5 0 * * *", tradecron.KRXHours, "25 15 * * *", "@close", "", nil),
		Entry("Daily 1 hour after market close, US hours", "@close 0 1 * * *", tradecron.RegularHours, "0 17 * * *", "@close", "", nil),
		Entry("Daily 9 hours after market close", "@close 0 9 * * *", tradecron.KRXHours, "", "", "", tradecron.ErrFieldOutOfBounds),
		Entry("Malformed minutes", "@close x 0 * * *", tradecron.KRXHours, "", "", "", tradecron.ErrMalformedTimeSpec),
		Entry("Annually", "@monthend * * * 12 *", tradecron.KRXHours, "* * * 12 *", "", "@monthend", nil),
		Entry("Both @open @close specified", "@open @close", tradecron.KRXHours, "", "", "", tradecron.ErrConflictingModifiers),
		Entry("Both @weekbegin @weekend specified", "@weekbegin @weekend", tradecron.KRXHours, "", "", "", tradecron.ErrConflictingModifiers),
		Entry("Both @weekbegin @monthend specified", "@weekbegin @monthend", tradecron.KRXHours, "", "", "", tradecron.ErrConflictingModifiers),
		Entry("@weekbegin test", "@weekbegin */5", tradecron.KRXHours, "*/5 * * * *", "", "@weekbegin", nil),
		Entry("Unknown modifier", "@modifier", tradecron.KRXHours, "", "", "", tradecron.ErrUnknownModifier),
	)

	It("reports robfig/cron parse errors", func() {
		_, err := tradecron.New("$/5 * * * *", krxCalendar())
		Expect(err).To(MatchError(ContainSubstring("failed to parse int from $")))
		_, err = tradecron.New("*/5 * * * * *", krxCalendar())
		Expect(err).To(MatchError(ContainSubstring("expected exactly 5 fields, found 6")))
	})

	DescribeTable("when evaluating next trade day",
		func(spec string, given time.Time, expected time.Time) {
			cron, err := tradecron.New(spec, krxCalendar())
			Expect(err).To(BeNil())
			Expect(cron.Next(given)).To(Equal(expected))
		},
		Entry("every 5 minutes starting on saturday", "*/5 * * * *", kst(2026, 1, 3, 0, 0), kst(2026, 1, 5, 9, 0)),
		Entry("every 5 minutes starting at market open", "*/5 * * * *", kst(2026, 1, 5, 9, 0), kst(2026, 1, 5, 9, 5)),
		Entry("every 5 minutes starting at market close", "*/5 * * * *", kst(2026, 1, 5, 15, 30), kst(2026, 1, 6, 9, 0)),
		Entry("every 5 minutes across the new year holidays", "*/5 * * * *", kst(2025, 12, 31, 0, 0), kst(2026, 1, 2, 9, 0)),
		Entry("every 5 minutes starting at early close", "*/5 * * * *", kst(2026, 1, 9, 12, 0), kst(2026, 1, 12, 9, 0)),
		Entry("after the close on friday", "30 @close * * 1-5", kst(2026, 1, 2, 17, 0), kst(2026, 1, 5, 16, 0)),
		Entry("after the close across seollal", "30 @close * * 1-5", kst(2026, 2, 13, 16, 30), kst(2026, 2, 19, 16, 0)),
		Entry("month end", "@monthend", kst(2026, 1, 2, 0, 0), kst(2026, 1, 30, 9, 0)),
		Entry("month begin", "@monthbegin", kst(2026, 1, 5, 0, 0), kst(2026, 2, 2, 9, 0)),
		Entry("month begin at the close after a holiday", "@close @monthbegin", kst(2025, 12, 30, 16, 0), kst(2026, 1, 2, 15, 30)),
		Entry("week begin after a holiday", "@weekbegin", kst(2026, 2, 13, 0, 0), kst(2026, 2, 19, 9, 0)),
		Entry("week end", "@weekend", kst(2026, 1, 5, 0, 0), kst(2026, 1, 9, 9, 0)),
	)

	DescribeTable("when evaluating IsTradeDay",
		func(spec string, given time.Time, expected bool) {
			cron, err := tradecron.New(spec, krxCalendar())
			Expect(err).To(BeNil())
			Expect(cron.IsTradeDay(given)).To(Equal(expected))
		},
		Entry("saturday", "*/5 * * * *", kst(2026, 1, 3, 0, 0), false),
		Entry("monday", "*/5 * * * *", kst(2026, 1, 5, 9, 0), true),
		Entry("new year holiday", "*/5 * * * *", kst(2026, 1, 1, 0, 0), false),
		Entry("early close", "*/5 * * * *", kst(2026, 1, 9, 13, 0), true),
		Entry("after the close on a weekday", "30 @close * * 1-5", kst(2026, 1, 5, 0, 0), true),
		Entry("month end, date given is month end", "@monthend", kst(2026, 1, 30, 0, 0), true),
		Entry("month end, date given not month end", "@monthend", kst(2026, 1, 29, 0, 0), false),
		Entry("week begin, date given is week begin (holiday)", "@weekbegin", kst(2026, 2, 19, 0, 0), true),
		Entry("week begin, date given is not week begin", "@weekbegin", kst(2026, 2, 20, 0, 0), false),
	)

	DescribeTable("when evaluating Fires",
		func(spec string, given time.Time, expected bool) {
			cron, err := tradecron.New(spec, krxCalendar())
			Expect(err).To(BeNil())
			Expect(cron.Fires(given)).To(Equal(expected))
		},
		Entry("during the scheduled minute", "30 @close * * 1-5", kst(2026, 1, 5, 16, 0).Add(20*time.Second), true),
		Entry("a minute late", "30 @close * * 1-5", kst(2026, 1, 5, 16, 1), false),
		Entry("on a holiday", "30 @close * * 1-5", kst(2026, 2, 16, 16, 0), false),
		Entry("inside market hours", "*/5", kst(2026, 1, 5, 9, 5).Add(30*time.Second), true),
		Entry("between ticks", "*/5", kst(2026, 1, 5, 9, 2), false),
		Entry("before the open", "*/5", kst(2026, 1, 5, 8, 55), false),
	)
})

var _ = Describe("Calendar", func() {
	var cal *tradecron.Calendar

	BeforeEach(func() {
		cal = krxCalendar()
	})

	It("knows trading hours", func() {
		Expect(cal.IsMarketOpen(kst(2026, 1, 5, 8, 59))).To(BeFalse())
		Expect(cal.IsMarketOpen(kst(2026, 1, 5, 9, 0))).To(BeTrue())
		Expect(cal.IsMarketOpen(kst(2026, 1, 5, 15, 30))).To(BeTrue())
		Expect(cal.IsMarketOpen(kst(2026, 1, 9, 12, 30))).To(BeFalse())
		Expect(cal.EarlyClose(kst(2026, 1, 9, 0, 0))).To(Equal(1200))
	})

	It("evaluates dates in the exchange timezone", func() {
		// 2025-12-31 16:00 UTC is 2026-01-01 in Seoul
		Expect(cal.IsMarketDay(time.Date(2025, 12, 31, 16, 0, 0, 0, time.UTC))).To(BeFalse())
		Expect(cal.IsMarketDay(time.Date(2026, 1, 1, 16, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("finds the previous market day", func() {
		Expect(cal.PreviousMarketDay(kst(2026, 1, 5, 10, 0))).To(Equal(kst(2026, 1, 2, 0, 0)))
		Expect(cal.PreviousMarketDay(kst(2026, 1, 2, 10, 0))).To(Equal(kst(2025, 12, 30, 0, 0)))
	})

	It("rejects malformed holidays", func() {
		Expect(cal.LoadHolidays([]string{"not a date"})).To(MatchError(tradecron.ErrMalformedHoliday))
		Expect(cal.LoadHolidays([]string{"2026-01-01=2500"})).To(MatchError(tradecron.ErrMalformedHoliday))
	})

	It("validates market hours", func() {
		Expect(tradecron.KRXHours.Validate()).To(Succeed())
		Expect(tradecron.MarketHours{Open: 1600, Close: 930}.Validate()).To(MatchError(tradecron.ErrMalformedHours))
		Expect(tradecron.MarketHours{Open: 970, Close: 1600}.Validate()).To(MatchError(tradecron.ErrMalformedHours))
	})

	It("reads its configuration from viper", func() {
		viper.Set("market.timezone", "Asia/Seoul")
		viper.Set("market.holidays", []string{"2026-01-01"})
		DeferCleanup(func() {
			viper.Set("market.holidays", nil)
			viper.Set("market.timezone", "")
		})

		fromViper, err := tradecron.CalendarFromViper()
		Expect(err).To(BeNil())
		Expect(fromViper.Hours()).To(Equal(tradecron.KRXHours))
		Expect(fromViper.IsMarketHoliday(kst(2026, 1, 1, 0, 0))).To(BeTrue())
	})
})
