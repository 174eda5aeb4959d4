package models

import "time"

// AcademicRecord is one semester result of a principal. Several rows per (user, semester) are allowed.
type AcademicRecord struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Semester      string    `db:"semester" json:"semester"`
	GPA           float64   `db:"gpa" json:"gpa"`
	CreditsEarned int       `db:"credits_earned" json:"credits_earned"`
	TotalCredits  int       `db:"total_credits" json:"total_credits"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
