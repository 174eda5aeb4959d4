package models

import "time"

// UserRole represents the available roles. Checks are exact matches; there is no hierarchy.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleFaculty UserRole = "faculty"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// User is a principal stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	Department   *string   `db:"department" json:"department"`
	Year         *string   `db:"year" json:"year"`
	Active       bool      `db:"active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentValue returns the department or "" when unset.
func (u *User) DepartmentValue() string {
	if u == nil || u.Department == nil {
		return ""
	}
	return *u.Department
}

// YearValue returns the year or "" when unset.
func (u *User) YearValue() string {
	if u == nil || u.Year == nil {
		return ""
	}
	return *u.Year
}

// FacultyScope returns the visibility scope of a faculty member. ok is false when the
// faculty has no department, in which case nothing is in scope.
func (u *User) FacultyScope() (scope StudentScope, ok bool) {
	dept := u.DepartmentValue()
	if dept == "" {
		return StudentScope{}, false
	}
	return StudentScope{Department: dept, Year: u.YearValue()}, true
}

// StudentScope restricts listings to students of a department and, when Year is set, a year.
type StudentScope struct {
	Department string
	Year       string
}

// StudentSummary is the faculty-facing view of a student.
type StudentSummary struct {
	ID         string  `db:"id" json:"id"`
	FullName   string  `db:"full_name" json:"full_name"`
	Email      string  `db:"email" json:"email"`
	Department *string `db:"department" json:"department"`
	Year       *string `db:"year" json:"year"`
}

// ProfileUpdate lists the self-service mutable fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	FullName   *string
	Department *string
	Year       *string
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
