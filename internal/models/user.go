package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AdminPermission is the per-admin capability set layered on top of the
// ADMIN role. Role and flag are enforced independently: holding a row
// without the ADMIN role grants nothing.
type AdminPermission struct {
	UserID           string    `db:"user_id" json:"user_id"`
	CanAddAdmins     bool      `db:"can_add_admins" json:"can_add_admins"`
	CanManageStudents bool     `db:"can_manage_students" json:"can_manage_students"`
	CanUploadBulkData bool     `db:"can_upload_bulk_data" json:"can_upload_bulk_data"`
	CanApproveGrades bool      `db:"can_approve_grades" json:"can_approve_grades"`
	CanManageTeachers bool     `db:"can_manage_teachers" json:"can_manage_teachers"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
