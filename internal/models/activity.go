package models

import "time"

// ActivityStatus is the lifecycle state of an activity submission.
type ActivityStatus string

const (
	ActivityPending  ActivityStatus = "pending"
	ActivityApproved ActivityStatus = "approved"
	ActivityRejected ActivityStatus = "rejected"
)

// Decision is a faculty verdict on a pending activity.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// TargetStatus maps a decision to the status it produces.
func (d Decision) TargetStatus() (ActivityStatus, bool) {
	switch d {
	case DecisionApprove:
		return ActivityApproved, true
	case DecisionReject:
		return ActivityRejected, true
	}
	return "", false
}

// Activity is a student submitted extracurricular record held in the document store.
type Activity struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Category     string         `json:"category"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Duration     string         `json:"duration"`
	SkillsGained []string       `json:"skills_gained"`
	ProofURL     *string        `json:"proof_url"`
	Status       ActivityStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	ApprovedAt   *time.Time     `json:"approved_at"`
	FacultyID    *string        `json:"faculty_id"`
}

// ActivityTransition describes a compare-and-swap status change.
type ActivityTransition struct {
	From      ActivityStatus
	To        ActivityStatus
	FacultyID string
	At        time.Time
}

// ProofReference is returned after a proof upload.
type ProofReference struct {
	URL string `json:"url"`
}
