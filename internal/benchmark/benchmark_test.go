package benchmark

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSeparatorAndCaseVariants(t *testing.T) {
	t.Parallel()

	variants := []string{
		"ma-k-nso-1-1",
		"MA_K_NSO_1_1",
		" MA.K.NSO.1.1 ",
		"ma k nso 1 1",
		"Ma.K.Nso.1.1",
	}
	for _, raw := range variants {
		id, ok := Normalize(raw)
		require.True(t, ok, "input %q should normalize", raw)
		require.Equal(t, "MA.K.NSO.1.1", id)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	id, ok := Normalize("ma-912-ar-7-1")
	require.True(t, ok)
	again, ok := Normalize(id)
	require.True(t, ok)
	require.Equal(t, id, again)
}

func TestNormalizeGradeTokens(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw   string
		valid bool
	}{
		{"MA.K.NSO.1.1", true},
		{"MA.K12.NSO.1.1", true},
		{"MA.912.AR.7.1", true},
		{"MA.1.NSO.2.3", true},
		{"ELA.K.R.1.1", false}, // three-letter subject
		{"MA.K123.NSO.1.1", false},
	}
	for _, tc := range cases {
		_, ok := Normalize(tc.raw)
		require.Equal(t, tc.valid, ok, "input %q", tc.raw)
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	t.Parallel()

	invalid := []string{
		"",
		"   ",
		"MA.K.NSO",       // only 3 segments
		"MA.K.NSO.1",     // only 4 segments
		"M.K.NSO.1.1",    // one-letter subject
		"MA.K.NSOX.1.1x", // trailing junk
		"hello world",
	}
	for _, raw := range invalid {
		_, ok := Normalize(raw)
		require.False(t, ok, "input %q should be invalid", raw)
	}
}

func TestValidID(t *testing.T) {
	t.Parallel()

	require.True(t, ValidID("MA.K.NSO.1.1"))
	require.False(t, ValidID("ma.k.nso.1.1"), "ValidID does not normalize")
}
