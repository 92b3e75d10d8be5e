package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	require.Equal(t, 1, ClampLimit(0, 100))
	require.Equal(t, 1, ClampLimit(-5, 100))
	require.Equal(t, 100, ClampLimit(1<<62, 100))
	require.Equal(t, 20, ClampLimit(20, 100))
}

func TestClampOffset(t *testing.T) {
	require.Equal(t, 0, ClampOffset(-1, 10_000))
	require.Equal(t, 10_000, ClampOffset(50_000, 10_000))
	require.Equal(t, 42, ClampOffset(42, 10_000))
}

func TestCheckLengthBoundary(t *testing.T) {
	name := make([]rune, 100)
	for i := range name {
		name[i] = 'a'
	}
	require.True(t, CheckLength(string(name), 100))
	require.False(t, CheckLength(string(name)+"x", 100))
}

func TestCheckMetadataBytesCircularReference(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	err := CheckMetadataBytes("op", m, 1000)
	require.NotNil(t, err)
}

func TestCheckMetadataBytesSizeLimit(t *testing.T) {
	m := map[string]any{"blob": make([]byte, 0)}
	big := make([]string, 10_000)
	for i := range big {
		big[i] = "x"
	}
	m["blob"] = big
	err := CheckMetadataBytes("op", m, 10)
	require.NotNil(t, err)
}

func TestCheckRegexSafetyNestedQuantifier(t *testing.T) {
	require.NotNil(t, CheckRegexSafety("op", "(x+)+", 500))
	require.NotNil(t, CheckRegexSafety("op", "(.*)*", 500))
	require.NotNil(t, CheckRegexSafety("op", "(a|a)+", 500))
	require.Nil(t, CheckRegexSafety("op", "^fixed .* by .*$", 500))
}

func TestCheckRegexSafetyLengthGate(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	require.NotNil(t, CheckRegexSafety("op", string(long), 500))
}

func TestCheckRegexSafetyExcessiveRepetition(t *testing.T) {
	require.NotNil(t, CheckRegexSafety("op", `.{1,50000}`, 500))
	require.Nil(t, CheckRegexSafety("op", `.{1,10}`, 500))
}
