package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/flbest/standards-crawler/internal/benchmark"
	"github.com/flbest/standards-crawler/internal/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewWithPool(mock)
	require.NoError(t, err)
	return s, mock
}

func TestUpsertBenchmarkDefaultsSubject(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO benchmarks").
		WithArgs("MA.K.NSO.1.1", "K", "Count to 20.", "Mathematics", "https://www.cpalms.org/b/1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertBenchmark(context.Background(), benchmark.Benchmark{
		ID:         "MA.K.NSO.1.1",
		GradeLevel: "K",
		Definition: "Count to 20.",
		CPALMSURL:  "https://www.cpalms.org/b/1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBenchmarkRequiresID(t *testing.T) {
	t.Parallel()
	s, _ := newMockStore(t)

	err := s.UpsertBenchmark(context.Background(), benchmark.Benchmark{})
	require.Error(t, err)
}

func TestTouchBenchmark(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("UPDATE benchmarks SET cpalms_url").
		WithArgs("MA.K.NSO.1.1", "https://www.cpalms.org/b/1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.TouchBenchmark(context.Background(), "MA.K.NSO.1.1", "https://www.cpalms.org/b/1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScrapeStatusStartsAtOne(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT attempt_count FROM scrape_status").
		WithArgs("MA.K.NSO.1.1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO scrape_status").
		WithArgs("MA.K.NSO.1.1", "pending", 1, at, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpdateScrapeStatus(context.Background(), "MA.K.NSO.1.1", store.StatusPending, at, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScrapeStatusMonotonicCount(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	at := time.Unix(1700000000, 0).UTC()

	// Three successive updates must write attempt_count 1, 2, 3.
	mock.ExpectQuery("SELECT attempt_count FROM scrape_status").
		WithArgs("MA.K.NSO.1.1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO scrape_status").
		WithArgs("MA.K.NSO.1.1", "pending", 1, at, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery("SELECT attempt_count FROM scrape_status").
		WithArgs("MA.K.NSO.1.1").
		WillReturnRows(pgxmock.NewRows([]string{"attempt_count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO scrape_status").
		WithArgs("MA.K.NSO.1.1", "failed", 2, at, "boom").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery("SELECT attempt_count FROM scrape_status").
		WithArgs("MA.K.NSO.1.1").
		WillReturnRows(pgxmock.NewRows([]string{"attempt_count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO scrape_status").
		WithArgs("MA.K.NSO.1.1", "success", 3, at, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	require.NoError(t, s.UpdateScrapeStatus(ctx, "MA.K.NSO.1.1", store.StatusPending, at, ""))
	require.NoError(t, s.UpdateScrapeStatus(ctx, "MA.K.NSO.1.1", store.StatusFailed, at, "boom"))
	require.NoError(t, s.UpdateScrapeStatus(ctx, "MA.K.NSO.1.1", store.StatusSuccess, at, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendResourceInsertsRow(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO resources").
		WithArgs("MA.K.NSO.1.1", "Counting Cars", "https://www.cpalms.org/r/9", "Lesson Plan", "A counting lesson.").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendResource(context.Background(), "MA.K.NSO.1.1", store.Resource{
		Title:       "Counting Cars",
		URL:         "https://www.cpalms.org/r/9",
		Type:        store.TypeLessonPlan,
		Description: "A counting lesson.",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAccessPoint(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO access_points").
		WithArgs("MA.K.NSO.1.AP.1", "MA.K.NSO.1.1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertAccessPoint(context.Background(), "MA.K.NSO.1.AP.1", "MA.K.NSO.1.1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingBenchmarks(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT b.id FROM benchmarks b").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).
			AddRow("MA.K.NSO.1.1").
			AddRow("MA.K.NSO.1.2"))

	ids, err := s.PendingBenchmarks(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"MA.K.NSO.1.1", "MA.K.NSO.1.2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBenchmarkNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs("MA.K.NSO.9.9").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetBenchmark(context.Background(), "MA.K.NSO.9.9")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetScrapeStatus(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT benchmark_id, status, attempt_count").
		WithArgs("MA.K.NSO.1.1").
		WillReturnRows(pgxmock.NewRows([]string{"benchmark_id", "status", "attempt_count", "last_attempt", "error_message"}).
			AddRow("MA.K.NSO.1.1", "failed", 2, at, "timeout"))

	st, err := s.GetScrapeStatus(context.Background(), "MA.K.NSO.1.1")
	require.NoError(t, err)
	require.Equal(t, store.StatusFailed, st.Status)
	require.Equal(t, 2, st.AttemptCount)
	require.Equal(t, "timeout", st.ErrorMessage)
}

func TestResourcesByBenchmarkTypeFilter(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT title, url, resource_type").
		WithArgs("MA.K.NSO.1.1", "Lesson Plan").
		WillReturnRows(pgxmock.NewRows([]string{"title", "url", "resource_type", "description"}).
			AddRow("Counting Cars", "https://www.cpalms.org/r/9", "Lesson Plan", ""))

	res, err := s.ResourcesByBenchmark(context.Background(), "MA.K.NSO.1.1", store.TypeLessonPlan)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, store.TypeLessonPlan, res[0].Type)
}

func TestMigrateRunsAllStatements(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	for range migrations {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
