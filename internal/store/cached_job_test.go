package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/config"
	st "github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

var _ = Describe("cached job store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		s = st.NewStore(db, st.WithJobCache(16))
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from jobs;")
	})

	It("serves a DONE job from cache on second call", func() {
		job, err := s.Job().Create(context.TODO(), newJob(model.JobTypeNormal, "cached"))
		Expect(err).To(BeNil())
		Expect(s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusRunning, nil)).To(Succeed())
		Expect(s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusDone, nil)).To(Succeed())

		// First call - should fetch from database
		first, err := s.Job().FindByCacheKey(context.TODO(), model.JobTypeNormal, "cached")
		Expect(err).To(BeNil())
		Expect(first.ID).To(Equal(job.ID))

		// remove it behind the cache
		tx := gormdb.Exec("DELETE from jobs;")
		Expect(tx.Error).To(BeNil())

		// Second call - should fetch from cache
		second, err := s.Job().FindByCacheKey(context.TODO(), model.JobTypeNormal, "cached")
		Expect(err).To(BeNil())
		Expect(second.ID).To(Equal(job.ID))

		byID, err := s.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(byID.Status).To(Equal(model.JobStatusDone))
	})

	It("never caches a job that is still in flight", func() {
		job, err := s.Job().Create(context.TODO(), newJob(model.JobTypeNormal, "inflight"))
		Expect(err).To(BeNil())

		first, err := s.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(first.Status).To(Equal(model.JobStatusCreated))

		Expect(s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusRunning, nil)).To(Succeed())

		second, err := s.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(second.Status).To(Equal(model.JobStatusRunning))
	})
})
