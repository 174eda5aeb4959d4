package models

import "time"

// Audit actions recorded for privileged writes.
const (
	AuditActionRegister         = "USER_REGISTER"
	AuditActionProfileUpdate    = "PROFILE_UPDATE"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionActivityApprove  = "ACTIVITY_APPROVE"
	AuditActionActivityReject   = "ACTIVITY_REJECT"
	AuditActionStudentRecordAdd = "STUDENT_RECORD_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  string    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
