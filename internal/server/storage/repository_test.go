package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"reddot-watch/issuefeed/internal/database"
	"reddot-watch/issuefeed/internal/models"
)

func strPtr(s string) *string { return &s }

func actionPtr(a models.LifecycleAction) *models.LifecycleAction { return &a }

func commentRecord(id int64, occurredAt, body string) models.FeedRecord {
	return models.FeedRecord{
		ID:                 id,
		Kind:               models.KindComment,
		OccurredAt:         occurredAt,
		ActorLogin:         "octocat",
		ActorAvatarURL:     "https://avatars.example.com/octocat",
		RepositoryFullName: "octo/repo",
		ActivityURL:        fmt.Sprintf("https://github.com/octo/repo/issues/1#issuecomment-%d", id),
		ParentURL:          "https://github.com/octo/repo/issues/1",
		ParentNumber:       1,
		ParentTitle:        strPtr("Crash on start"),
		Body:               strPtr(body),
		SourceID:           id,
	}
}

func eventRecord(id int64, occurredAt string, action models.LifecycleAction) models.FeedRecord {
	return models.FeedRecord{
		ID:                 id,
		Kind:               models.KindEvent,
		OccurredAt:         occurredAt,
		ActorLogin:         "hubot",
		RepositoryFullName: "octo/repo",
		ActivityURL:        "https://github.com/octo/repo/issues/2",
		ParentURL:          "https://github.com/octo/repo/issues/2",
		ParentNumber:       2,
		LifecycleAction:    actionPtr(action),
		IsOwn:              true,
		SourceID:           555,
	}
}

func ids(records []models.FeedRecord) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

var _ = Describe("FeedRecordRepository", func() {
	var (
		ctx  context.Context
		db   *database.DB
		repo FeedRecordRepository
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = database.NewDB(database.NewConfig(filepath.Join(GinkgoT().TempDir(), "feed.db")))
		Expect(err).NotTo(HaveOccurred())
		repo = NewRepository(db)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Context("Upsert", func() {
		It("stores a record and derives its date from occurred_at", func() {
			record := commentRecord(9001, "2024-01-01T10:00:00Z", "looks good")
			record.DerivedDate = "1999-12-31"
			Expect(repo.Upsert(ctx, record)).To(Succeed())

			records, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal(int64(9001)))
			Expect(records[0].Kind).To(Equal(models.KindComment))
			Expect(records[0].DerivedDate).To(Equal("2024-01-01"))
			Expect(records[0].Body).To(HaveValue(Equal("looks good")))
			Expect(records[0].ParentTitle).To(HaveValue(Equal("Crash on start")))
			Expect(records[0].LifecycleAction).To(BeNil())
			Expect(records[0].SourceID).To(Equal(int64(9001)))
		})

		It("is idempotent for the same record", func() {
			record := eventRecord(55511704103200, "2024-01-01T10:00:00Z", models.ActionOpened)
			Expect(repo.Upsert(ctx, record)).To(Succeed())
			Expect(repo.Upsert(ctx, record)).To(Succeed())

			records, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].LifecycleAction).To(HaveValue(Equal(models.ActionOpened)))
			Expect(records[0].IsOwn).To(BeTrue())

			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("replaces every field when the id already exists", func() {
			first := commentRecord(42, "2024-01-01T10:00:00Z", "first draft")
			Expect(repo.Upsert(ctx, first)).To(Succeed())

			second := commentRecord(42, "2024-01-02T08:30:00Z", "second draft")
			second.ActorLogin = "monalisa"
			second.ParentTitle = nil
			second.IsOwn = true
			Expect(repo.Upsert(ctx, second)).To(Succeed())

			records, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			got := records[0]
			Expect(got.OccurredAt).To(Equal("2024-01-02T08:30:00Z"))
			Expect(got.DerivedDate).To(Equal("2024-01-02"))
			Expect(got.ActorLogin).To(Equal("monalisa"))
			Expect(got.Body).To(HaveValue(Equal("second draft")))
			Expect(got.ParentTitle).To(BeNil())
			Expect(got.IsOwn).To(BeTrue())
		})

		It("rejects an event record without a lifecycle action", func() {
			record := eventRecord(7, "2024-01-01T10:00:00Z", models.ActionClosed)
			record.LifecycleAction = nil
			Expect(repo.Upsert(ctx, record)).NotTo(Succeed())

			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("handles concurrent writers for distinct ids", func() {
			const writers = 20
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(id int64) {
					defer GinkgoRecover()
					defer wg.Done()
					errs <- repo.Upsert(ctx, commentRecord(id, "2024-03-01T12:00:00Z", "parallel"))
				}(int64(i + 1))
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(writers)))
		})

		It("never exposes a mix of two concurrent writes to the same id", func() {
			a := commentRecord(77, "2024-03-01T12:00:00Z", "version a")
			a.ActorLogin = "alice"
			b := commentRecord(77, "2024-03-02T12:00:00Z", "version b")
			b.ActorLogin = "bob"

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() { defer GinkgoRecover(); defer wg.Done(); Expect(repo.Upsert(ctx, a)).To(Succeed()) }()
				go func() { defer GinkgoRecover(); defer wg.Done(); Expect(repo.Upsert(ctx, b)).To(Succeed()) }()
			}
			wg.Wait()

			records, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			got := records[0]
			if got.ActorLogin == "alice" {
				Expect(got.Body).To(HaveValue(Equal("version a")))
				Expect(got.DerivedDate).To(Equal("2024-03-01"))
			} else {
				Expect(got.ActorLogin).To(Equal("bob"))
				Expect(got.Body).To(HaveValue(Equal("version b")))
				Expect(got.DerivedDate).To(Equal("2024-03-02"))
			}
		})
	})

	Context("Query", func() {
		BeforeEach(func() {
			Expect(repo.Upsert(ctx, commentRecord(1, "2024-01-01T09:00:00Z", "a"))).To(Succeed())
			Expect(repo.Upsert(ctx, commentRecord(2, "2024-01-02T09:00:00Z", "b"))).To(Succeed())
			Expect(repo.Upsert(ctx, eventRecord(3, "2024-01-01T23:59:59Z", models.ActionClosed))).To(Succeed())
			Expect(repo.Upsert(ctx, commentRecord(4, "2024-01-01T09:00:00Z", "tie"))).To(Succeed())
			Expect(repo.Upsert(ctx, eventRecord(5, "2024-01-03T00:00:00Z", models.ActionReopened))).To(Succeed())
		})

		It("returns everything ordered by occurred_at descending, ties by id descending", func() {
			records, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(records)).To(Equal([]int64{5, 2, 3, 4, 1}))
		})

		It("returns exactly the records of the requested date", func() {
			date := "2024-01-01"
			records, err := repo.Query(ctx, &date)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(records)).To(Equal([]int64{3, 4, 1}))

			all, err := repo.Query(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			var expected []int64
			for _, r := range all {
				if r.DerivedDate == date {
					expected = append(expected, r.ID)
				}
			}
			Expect(ids(records)).To(Equal(expected))
		})

		It("matches nothing for a malformed date", func() {
			date := "01/01/2024"
			records, err := repo.Query(ctx, &date)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).NotTo(BeNil())
			Expect(records).To(BeEmpty())
		})

		It("reports the total count", func() {
			count, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(5)))
		})
	})

	Context("when the database is closed", func() {
		It("surfaces errors instead of swallowing them", func() {
			Expect(db.Close()).To(Succeed())

			Expect(repo.Upsert(ctx, commentRecord(1, "2024-01-01T09:00:00Z", "a"))).NotTo(Succeed())
			_, err := repo.Query(ctx, nil)
			Expect(err).To(HaveOccurred())
			_, err = repo.Count(ctx)
			Expect(err).To(HaveOccurred())
		})
	})
})
