// Package ingest loads the benchmark seed list from CSV exports.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/benchmark"
)

// Column headers accepted in the seed export. Matching is
// case-insensitive and ignores surrounding whitespace.
const (
	colBenchmark   = "benchmark"
	colGrade       = "grade"
	colDescription = "description"
	colURL         = "url"
)

// LoadCSV reads a benchmark seed file. Rows whose id does not
// normalize to a valid benchmark id are skipped and logged, never
// fatal: seed exports routinely carry header junk and partial rows.
// Later rows win when the same id appears twice.
func LoadCSV(path string, logger *zap.Logger) (map[string]benchmark.Benchmark, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	set, err := Read(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return set, nil
}

// Read parses seed CSV from r. The first row must be a header carrying
// at least the benchmark column; grade, description and url are
// optional and may appear in any order.
func Read(r io.Reader, logger *zap.Logger) (map[string]benchmark.Benchmark, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	col := func(name string) int {
		if i, ok := cols[name]; ok {
			return i
		}
		return -1
	}
	idCol := col(colBenchmark)
	if idCol < 0 {
		return nil, fmt.Errorf("seed file has no %q column", colBenchmark)
	}
	gradeCol := col(colGrade)
	descCol := col(colDescription)
	urlCol := col(colURL)

	set := make(map[string]benchmark.Benchmark)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		raw := field(record, idCol)
		id, ok := benchmark.Normalize(raw)
		if !ok {
			logger.Warn("Skipping row with invalid benchmark id",
				zap.Int("line", line),
				zap.String("raw", raw),
			)
			continue
		}

		set[id] = benchmark.Benchmark{
			ID:         id,
			Definition: field(record, descCol),
			GradeLevel: field(record, gradeCol),
			Subject:    benchmark.DefaultSubject,
			CPALMSURL:  field(record, urlCol),
		}
	}

	logger.Info("Benchmark seed loaded", zap.Int("count", len(set)))
	return set, nil
}

// field returns the trimmed cell at idx, or "" when the column is
// absent or the row is short.
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
