// Package grading holds the pure scoring rules: raw continuous
// assessment and exam inputs to total score, letter grade, remark and
// grade point. Nothing here touches storage.
package grading

import (
	"fmt"

	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

// Score bounds enforced on raw inputs.
const (
	MaxCA   = 30.0
	MaxExam = 70.0
)

// Result carries the derived outcome for one subject grade. Total is
// nil when the exam score is missing: a grade cannot be finalized on
// CA alone and displays as "-".
type Result struct {
	Total  *float64
	Letter string
	Remark string
}

// Complete reports whether the result carries a finalized total.
func (r Result) Complete() bool {
	return r.Total != nil
}

// letterBoundaries is the authoritative grade boundary policy,
// inclusive lower bounds in descending order.
var letterBoundaries = []struct {
	min    float64
	letter string
}{
	{80, "A"},
	{75, "A-"},
	{70, "B+"},
	{65, "B"},
	{60, "B-"},
	{55, "C+"},
	{50, "C"},
	{45, "C-"},
	{40, "D"},
}

var remarks = map[string]string{
	"A":  "EXCELLENT",
	"A-": "EXCELLENT",
	"B+": "VERY GOOD",
	"B":  "VERY GOOD",
	"B-": "GOOD",
	"C+": "SATISFACTORY",
	"C":  "SATISFACTORY",
	"C-": "PASS",
	"D+": "PASS",
	"D":  "POOR",
	"F":  "FAIL",
}

var gradePoints = map[string]float64{
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D":  1.0,
	"F":  0.0,
}

// Score derives total, letter and remark from raw inputs. Out-of-range
// inputs are rejected, never clamped. A nil exam yields an incomplete
// result; a nil ca with exam present counts as zero.
func Score(ca, exam *float64) (Result, error) {
	if ca != nil && (*ca < 0 || *ca > MaxCA) {
		return Result{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("continuous assessment must be between 0 and %.0f", MaxCA))
	}
	if exam != nil && (*exam < 0 || *exam > MaxExam) {
		return Result{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam score must be between 0 and %.0f", MaxExam))
	}
	if exam == nil {
		return Result{}, nil
	}

	caValue := 0.0
	if ca != nil {
		caValue = *ca
	}
	total := caValue + *exam
	letter := Letter(total)
	return Result{Total: &total, Letter: letter, Remark: Remark(letter)}, nil
}

// Letter maps a total score to its letter grade.
func Letter(total float64) string {
	for _, boundary := range letterBoundaries {
		if total >= boundary.min {
			return boundary.letter
		}
	}
	return "F"
}

// Remark maps a letter grade to its qualitative label.
func Remark(letter string) string {
	return remarks[letter]
}

// GradePoint maps a letter grade to its 4.0-scale value. The mapping is
// total over the ten-letter domain; unknown letters score zero.
func GradePoint(letter string) float64 {
	return gradePoints[letter]
}
