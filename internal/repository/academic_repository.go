package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-hub-api/internal/models"
)

// AcademicRepository persists semester records in PostgreSQL.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// ListByUser returns every record owned by userID, oldest first.
func (r *AcademicRepository) ListByUser(ctx context.Context, userID string) ([]models.AcademicRecord, error) {
	const query = `SELECT id, user_id, semester, gpa, credits_earned, total_credits, created_at FROM academic_records WHERE user_id = $1 ORDER BY created_at`
	records := make([]models.AcademicRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list academic records: %w", err)
	}
	return records, nil
}

// Create inserts a record, assigning id and timestamp when missing.
func (r *AcademicRepository) Create(ctx context.Context, record *models.AcademicRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO academic_records (id, user_id, semester, gpa, credits_earned, total_credits, created_at) VALUES (:id, :user_id, :semester, :gpa, :credits_earned, :total_credits, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create academic record: %w", err)
	}
	return nil
}
