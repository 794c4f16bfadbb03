package data_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/penny-vault/pv-nav/data"
	"github.com/penny-vault/pv-nav/data/database"
	"github.com/penny-vault/pv-nav/pgxmockhelper"
)

var _ = Describe("PVDB tests", func() {
	var (
		dbPool pgxmock.PgxConnIface
		pvdb   *data.PvDb
		ctx    context.Context
		begin  time.Time
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
		pvdb = data.NewPvDb()
		ctx = context.Background()
		begin = time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
		Expect(database.OpenTransactionCount()).To(Equal(0))
	})

	Context("when interacting with pvdb", func() {
		It("fetches closing levels", func() {
			// event_date  ticker  close
			// 2025-12-30  KS11    2500
			// 2026-01-02  KS11    2525.25
			// 2026-01-05  KS11    2510
			pgxmockhelper.MockDBEodQuery(dbPool, "testdata/eod.csv", "KS11", begin)
			series, err := pvdb.GetSeries(ctx, "KS11", data.MetricClose, begin)
			Expect(err).To(BeNil())
			Expect(series).To(HaveLen(3))
			Expect(series[0].Value).To(Equal(2500.0))
			Expect(series[2].Date).To(Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
		})

		It("computes daily changes", func() {
			pgxmockhelper.MockDBEodQuery(dbPool, "testdata/eod.csv", "005930", begin.AddDate(0, 0, -14))
			series, err := pvdb.GetSeries(ctx, "005930", data.MetricChange, begin)
			Expect(err).To(BeNil())
			Expect(series).To(HaveLen(3))
			Expect(series[0].Date).To(Equal(begin))
			Expect(series[1].Value).To(BeNumerically("~", 0.02, 1e-9))
			Expect(series[2].Value).To(BeNumerically("~", -0.01, 1e-9))
		})

		It("does not error when no data is available", func() {
			pgxmockhelper.MockDBEodQuery(dbPool, "testdata/eod.csv", "000000", begin)
			series, err := pvdb.GetSeries(ctx, "000000", data.MetricClose, begin)
			Expect(err).To(BeNil())
			Expect(series).To(BeEmpty())
		})
	})
})
