package store_test

import (
	"context"
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/config"
	st "github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

var _ = Describe("result store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
		jobID  string
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())

		job, err := s.Job().Create(context.TODO(), newJob(model.JobTypeNormal, "results"))
		Expect(err).To(BeNil())
		jobID = job.ID

		rows := make(model.ResultList, 0, 250)
		for _, i := range rand.Perm(250) {
			rows = append(rows, model.Result{
				JobID:     jobID,
				Score:     float64(i + 1),
				SourceTag: fmt.Sprintf("source %03d", i+1),
				TargetTag: fmt.Sprintf("target %03d", 250-i),
			})
		}
		Expect(s.Result().CreateBatch(context.TODO(), rows)).To(Succeed())

		other, err := s.Job().Create(context.TODO(), newJob(model.JobTypeNormal, "other"))
		Expect(err).To(BeNil())
		Expect(s.Result().CreateBatch(context.TODO(), model.ResultList{{JobID: other.ID, Score: 1000}})).To(Succeed())
	})

	AfterAll(func() {
		gormdb.Exec("DELETE from results;")
		gormdb.Exec("DELETE from jobs;")
		s.Close()
	})

	scores := func(rows model.ResultList) []float64 {
		out := make([]float64, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Score)
		}
		return out
	}

	It("returns the window beyond offset 200 sorted by score descending", func() {
		rows, err := s.Result().List(context.TODO(), jobID, st.Window{SortBy: "score", Order: st.SortDescending, Offset: 200, Limit: 100})
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(50))
		Expect(rows[0].Score).To(Equal(50.0))
		Expect(rows[49].Score).To(Equal(1.0))
	})

	It("returns the first page sorted by score ascending", func() {
		rows, err := s.Result().List(context.TODO(), jobID, st.Window{SortBy: "score", Order: st.SortAscending, Offset: 0, Limit: 100})
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(100))
		Expect(scores(rows)[:3]).To(Equal([]float64{1, 2, 3}))
	})

	It("sorts by tag", func() {
		rows, err := s.Result().List(context.TODO(), jobID, st.Window{SortBy: "target_tag", Order: st.SortAscending, Limit: 1})
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].TargetTag).To(Equal("target 001"))
		Expect(rows[0].Score).To(Equal(250.0))
	})

	It("returns nothing past the end", func() {
		rows, err := s.Result().List(context.TODO(), jobID, st.Window{SortBy: "score", Order: st.SortDescending, Offset: 300, Limit: 100})
		Expect(err).To(BeNil())
		Expect(rows).To(BeEmpty())
	})

	It("summarizes the rows of one job", func() {
		summary, err := s.Result().Summary(context.TODO(), jobID)
		Expect(err).To(BeNil())
		Expect(summary).To(Equal(model.JobSummary{MaxScore: 250, TotalCount: 250}))
	})

	It("summarizes a job without rows", func() {
		summary, err := s.Result().Summary(context.TODO(), "00000000000000000000000000000000")
		Expect(err).To(BeNil())
		Expect(summary).To(Equal(model.JobSummary{}))
	})
})
