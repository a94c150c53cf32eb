package models

import "time"

// GradeStatus tracks the lifecycle of a subject grade record. Status
// only advances forward; the admin unlock path is the single exception.
type GradeStatus string

const (
	GradeStatusDraft     GradeStatus = "draft"
	GradeStatusSubmitted GradeStatus = "submitted"
	GradeStatusApproved  GradeStatus = "approved"
	GradeStatusLocked    GradeStatus = "locked"
)

// SubjectGrade is one student's performance in one subject for one term.
// CA and Exam are nullable raw inputs; Total, Letter and Remark are
// derived by the scorer and never written directly by callers.
type SubjectGrade struct {
	ID         string      `db:"id" json:"id"`
	StudentID  string      `db:"student_id" json:"student_id"`
	SubjectID  string      `db:"subject_id" json:"subject_id"`
	ClassID    string      `db:"class_id" json:"class_id"`
	TermID     string      `db:"term_id" json:"term_id"`
	CA         *float64    `db:"ca_score" json:"ca_score,omitempty"`
	Exam       *float64    `db:"exam_score" json:"exam_score,omitempty"`
	Total      *float64    `db:"total_score" json:"total_score,omitempty"`
	Letter     *string     `db:"letter_grade" json:"letter_grade,omitempty"`
	Remark     *string     `db:"remark" json:"remark,omitempty"`
	Status     GradeStatus `db:"status" json:"status"`
	EnteredBy  string      `db:"entered_by" json:"entered_by"`
	ApprovedBy *string     `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// SubjectGradeDetail adds display names for report rendering.
type SubjectGradeDetail struct {
	SubjectGrade
	SubjectName string `db:"subject_name" json:"subject_name"`
	StudentName string `db:"student_name" json:"student_name"`
	StudentNo   string `db:"student_no" json:"student_no"`
}

// GradeFilter allows querying of subject grade records.
type GradeFilter struct {
	StudentID string
	SubjectID string
	ClassID   string
	TermID    string
	Status    GradeStatus
}
