package models

import "time"

// ApplicationStatus is write-once-terminal: pending transitions to
// exactly one of accepted or rejected.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a prospective student's admission request.
type Application struct {
	ID                 string            `db:"id" json:"id"`
	FirstName          string            `db:"first_name" json:"first_name"`
	LastName           string            `db:"last_name" json:"last_name"`
	Email              *string           `db:"email" json:"email,omitempty"`
	Phone              *string           `db:"phone" json:"phone,omitempty"`
	Gender             *string           `db:"gender" json:"gender,omitempty"`
	BirthDate          *time.Time        `db:"birth_date" json:"birth_date,omitempty"`
	GradeAppliedFor    string            `db:"grade_applied_for" json:"grade_applied_for"`
	Programme          string            `db:"programme" json:"programme"`
	GuardianName       string            `db:"guardian_name" json:"guardian_name"`
	GuardianRelation   *string           `db:"guardian_relation" json:"guardian_relation,omitempty"`
	GuardianPhone      string            `db:"guardian_phone" json:"guardian_phone"`
	GuardianEmail      *string           `db:"guardian_email" json:"guardian_email,omitempty"`
	Status             ApplicationStatus `db:"status" json:"status"`
	GeneratedStudentID *string           `db:"generated_student_id" json:"generated_student_id,omitempty"`
	RejectionReason    *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy         *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
}

// ApplicationFilter scopes admission list queries.
type ApplicationFilter struct {
	Status    ApplicationStatus
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
