package models

import "time"

// Student represents a learner registered in the institution. The
// StudentNo is the public identifier issued by the admissions
// allocator; ID is the internal row key.
type Student struct {
	ID            string     `db:"id" json:"id"`
	StudentNo     string     `db:"student_no" json:"student_no"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	GuardianName  *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	ClassID       *string    `db:"class_id" json:"class_id,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with class context.
type StudentDetail struct {
	Student
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}
