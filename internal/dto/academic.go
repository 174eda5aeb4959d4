package dto

// AcademicRecordRequest carries one semester result.
type AcademicRecordRequest struct {
	Semester      string  `json:"semester" validate:"required"`
	GPA           float64 `json:"gpa" validate:"gte=0"`
	CreditsEarned int     `json:"credits_earned" validate:"gte=0"`
	TotalCredits  int     `json:"total_credits" validate:"gte=0"`
}
