package models

import "time"

// TermResult is one student's aggregated outcome for one term. Rows are
// fully replaced by the aggregation pass; they are never patched
// incrementally.
type TermResult struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	TermID           string    `db:"term_id" json:"term_id"`
	ClassID          string    `db:"class_id" json:"class_id"`
	GPA              float64   `db:"gpa" json:"gpa"`
	ClassPosition    int       `db:"class_position" json:"class_position"`
	ClassSize        int       `db:"class_size" json:"class_size"`
	TeacherComment   *string   `db:"teacher_comment" json:"teacher_comment,omitempty"`
	PrincipalComment *string   `db:"principal_comment" json:"principal_comment,omitempty"`
	IsPublished      bool      `db:"is_published" json:"is_published"`
	ComputedAt       time.Time `db:"computed_at" json:"computed_at"`
}

// TermResultDetail joins in student identity for report rendering.
type TermResultDetail struct {
	TermResult
	StudentName string `db:"student_name" json:"student_name"`
	StudentNo   string `db:"student_no" json:"student_no"`
}

// TranscriptTerm is one published term in a student transcript.
type TranscriptTerm struct {
	TermID   string               `json:"term_id"`
	TermName string               `json:"term_name"`
	GPA      float64              `json:"gpa"`
	Subjects []SubjectGradeDetail `json:"subjects"`
}

// Transcript is the full multi-term academic record of a student.
type Transcript struct {
	StudentID string           `json:"student_id"`
	CGPA      float64          `json:"cgpa"`
	Terms     []TranscriptTerm `json:"terms"`
}
