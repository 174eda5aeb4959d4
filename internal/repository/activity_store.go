package repository

import (
	"errors"

	"github.com/noah-isme/student-hub-api/internal/models"
)

var (
	// ErrActivityNotFound is returned when no activity has the requested id.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityConflict is returned when a transition's expected status no longer holds,
	// either because the activity was already decided or a concurrent writer won.
	ErrActivityConflict = errors.New("activity status changed")
)

func cloneActivity(a *models.Activity) models.Activity {
	out := *a
	if a.SkillsGained != nil {
		out.SkillsGained = append([]string(nil), a.SkillsGained...)
	}
	if a.ProofURL != nil {
		v := *a.ProofURL
		out.ProofURL = &v
	}
	if a.ApprovedAt != nil {
		v := *a.ApprovedAt
		out.ApprovedAt = &v
	}
	if a.FacultyID != nil {
		v := *a.FacultyID
		out.FacultyID = &v
	}
	return out
}

func applyTransition(a *models.Activity, t models.ActivityTransition) {
	at := t.At
	faculty := t.FacultyID
	a.Status = t.To
	a.ApprovedAt = &at
	a.FacultyID = &faculty
}
