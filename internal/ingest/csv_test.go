package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/benchmark"
)

func TestReadMapsColumnsByHeader(t *testing.T) {
	t.Parallel()

	csv := strings.Join([]string{
		"URL,Description,Grade,Benchmark",
		"https://www.cpalms.org/b/1,Count to 20,K,MA.K.NSO.1.1",
		"https://www.cpalms.org/b/2,Compare numbers,K,MA.K.NSO.1.2",
	}, "\n")

	set, err := Read(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, set, 2)

	b := set["MA.K.NSO.1.1"]
	require.Equal(t, "MA.K.NSO.1.1", b.ID)
	require.Equal(t, "Count to 20", b.Definition)
	require.Equal(t, "K", b.GradeLevel)
	require.Equal(t, benchmark.DefaultSubject, b.Subject)
	require.Equal(t, "https://www.cpalms.org/b/1", b.CPALMSURL)
}

func TestReadNormalizesBenchmarkIDs(t *testing.T) {
	t.Parallel()

	csv := "benchmark,grade\nma k nso 1 1,K\n"
	set, err := Read(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Contains(t, set, "MA.K.NSO.1.1")
}

func TestReadSkipsInvalidRows(t *testing.T) {
	t.Parallel()

	csv := strings.Join([]string{
		"benchmark,grade",
		"MA.K.NSO.1.1,K",
		"not a benchmark,K",
		",K",
		"MA.K.NSO.1.2,K",
	}, "\n")

	set, err := Read(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Contains(t, set, "MA.K.NSO.1.1")
	require.Contains(t, set, "MA.K.NSO.1.2")
}

func TestReadLaterRowWinsOnDuplicateID(t *testing.T) {
	t.Parallel()

	csv := strings.Join([]string{
		"benchmark,description",
		"MA.K.NSO.1.1,first",
		"MA.K.NSO.1.1,second",
	}, "\n")

	set, err := Read(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, set, 1)
	require.Equal(t, "second", set["MA.K.NSO.1.1"].Definition)
}

func TestReadToleratesShortRows(t *testing.T) {
	t.Parallel()

	csv := "benchmark,grade,description\nMA.K.NSO.1.1\n"
	set, err := Read(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, set["MA.K.NSO.1.1"].GradeLevel)
	require.Empty(t, set["MA.K.NSO.1.1"].Definition)
}

func TestReadRequiresBenchmarkColumn(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("grade,description\nK,Count to 20\n"), zap.NewNop())
	require.ErrorContains(t, err, "benchmark")
}

func TestLoadCSVFromDisk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte("benchmark,grade\nMA.K.NSO.1.1,K\n"), 0o644))

	set, err := LoadCSV(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, set, 1)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), zap.NewNop())
	require.Error(t, err)
}
