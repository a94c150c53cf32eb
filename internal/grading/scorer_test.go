package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestScoreTotalIsSum(t *testing.T) {
	result, err := Score(f(25), f(50))
	require.NoError(t, err)
	require.True(t, result.Complete())
	assert.Equal(t, 75.0, *result.Total)
	assert.Equal(t, "A-", result.Letter)
	assert.Equal(t, "EXCELLENT", result.Remark)
}

func TestScoreLetterBoundaries(t *testing.T) {
	cases := []struct {
		total  float64
		letter string
		remark string
	}{
		{100, "A", "EXCELLENT"},
		{80, "A", "EXCELLENT"},
		{79, "A-", "EXCELLENT"},
		{75, "A-", "EXCELLENT"},
		{74, "B+", "VERY GOOD"},
		{70, "B+", "VERY GOOD"},
		{65, "B", "VERY GOOD"},
		{64, "B-", "GOOD"},
		{60, "B-", "GOOD"},
		{55, "C+", "SATISFACTORY"},
		{50, "C", "SATISFACTORY"},
		{45, "C-", "PASS"},
		{44, "D", "POOR"},
		{40, "D", "POOR"},
		{39, "F", "FAIL"},
		{0, "F", "FAIL"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, Letter(tc.total), "total=%v", tc.total)
		assert.Equal(t, tc.remark, Remark(Letter(tc.total)), "total=%v", tc.total)
	}
}

func TestScoreMissingExamIsIncomplete(t *testing.T) {
	result, err := Score(f(30), nil)
	require.NoError(t, err)
	assert.False(t, result.Complete())
	assert.Nil(t, result.Total)
	assert.Empty(t, result.Letter)
}

func TestScoreMissingCADefaultsToZero(t *testing.T) {
	result, err := Score(nil, f(62))
	require.NoError(t, err)
	require.True(t, result.Complete())
	assert.Equal(t, 62.0, *result.Total)
	assert.Equal(t, "B-", result.Letter)
}

func TestScoreRejectsOutOfRange(t *testing.T) {
	_, err := Score(f(31), f(50))
	require.Error(t, err)

	_, err = Score(f(-1), f(50))
	require.Error(t, err)

	_, err = Score(f(10), f(71))
	require.Error(t, err)

	_, err = Score(f(10), f(-0.5))
	require.Error(t, err)
}

func TestGradePointTotalOverDomain(t *testing.T) {
	expected := map[string]float64{
		"A": 4.0, "A-": 3.7, "B+": 3.3, "B": 3.0, "B-": 2.7,
		"C+": 2.3, "C": 2.0, "C-": 1.7, "D": 1.0, "F": 0.0,
	}
	for letter, points := range expected {
		assert.Equal(t, points, GradePoint(letter), "letter=%s", letter)
	}
}
