package migrations_test

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/tesserae/tess-jobs/internal/config"
	"github.com/tesserae/tess-jobs/internal/store"
	"github.com/tesserae/tess-jobs/pkg/migrations"
)

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		cfg    *config.Config
	)

	BeforeAll(func() {
		var err error
		cfg, err = config.New()
		Expect(err).To(BeNil())
		if cfg.Database.Type != "pgsql" {
			cfg = config.NewDefault()
		}
		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	Context("store migrations", Ordered, func() {
		It("fails to migrate the db -- migration folder does not exist", func() {
			err := migrations.MigrateStore(context.TODO(), gormdb, "some folder", nil)
			Expect(err).NotTo(BeNil())
		})

		It("fails to migrate the db -- migration folder is a file", func() {
			file := filepath.Join(GinkgoT().TempDir(), "migration.sql")
			Expect(os.WriteFile(file, []byte("--"), 0600)).To(Succeed())

			err := migrations.MigrateStore(context.TODO(), gormdb, file, nil)
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("is not a folder"))
		})

		It("successfully migrates the db", func() {
			if cfg.Database.Type != "pgsql" {
				Skip("sql migrations target postgres")
			}

			currentFolder, err := os.Getwd()
			Expect(err).To(BeNil())

			err = migrations.MigrateStore(context.TODO(), gormdb, path.Join(currentFolder, "sql"), nil)
			Expect(err).To(BeNil())

			tableExists := func(name string) bool {
				exists := false
				tx := gormdb.Raw(fmt.Sprintf("SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' and tablename = '%s');", name)).Scan(&exists)
				Expect(tx.Error).To(BeNil())

				return exists
			}

			for _, table := range []string{"jobs", "results"} {
				Expect(tableExists(table)).To(BeTrue())
			}

			indexExists := false
			tx := gormdb.Raw("SELECT EXISTS (SELECT FROM pg_indexes WHERE indexname = 'jobs_live_cache_key');").Scan(&indexExists)
			Expect(tx.Error).To(BeNil())
			Expect(indexExists).To(BeTrue())
		})

		It("applies the embedded migrations when no folder is given", func() {
			if cfg.Database.Type != "pgsql" {
				Skip("sql migrations target postgres")
			}

			Expect(migrations.MigrateStore(context.TODO(), gormdb, "", nil)).To(Succeed())

			var version int64
			tx := gormdb.Raw("SELECT MAX(version_id) FROM goose_db_version;").Scan(&version)
			Expect(tx.Error).To(BeNil())
			Expect(version).To(Equal(int64(20261015100000)))
		})

		AfterEach(func() {
			if cfg.Database.Type != "pgsql" {
				return
			}
			gormdb.Exec("DROP TABLE IF EXISTS results;")
			gormdb.Exec("DROP TABLE IF EXISTS jobs;")
			gormdb.Exec("DROP TABLE IF EXISTS goose_db_version;")
		})
	})
})
