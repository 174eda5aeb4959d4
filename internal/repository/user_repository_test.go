package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-hub-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "department", "year", "active", "created_at", "updated_at"}

func TestFindByEmailLowercases(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "ada@example.edu", "hash", "Ada", "student", "CS", nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, department, year, active, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("ada@example.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Ada@Example.EDU")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, "CS", user.DepartmentValue())
	assert.Nil(t, user.Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id = \\$1 LIMIT 1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "Dup@Example.edu", FullName: "Dup", Role: models.RoleStudent, Active: true})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "New@Example.edu", FullName: "New", Role: models.RoleFaculty, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "new@example.edu", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileOnlyTouchesProvidedFields(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "ada@example.edu", "hash", "Ada L", "student", nil, "2", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET updated_at = $2, full_name = $3, department = $4 WHERE id = $1 RETURNING")).
		WithArgs("u1", sqlmock.AnyArg(), "Ada L", sqlmock.AnyArg()).
		WillReturnRows(rows)

	user, err := repo.UpdateProfile(context.Background(), "u1", models.ProfileUpdate{
		FullName:   models.StringPtr("Ada L"),
		Department: models.StringPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", user.FullName)
	assert.Nil(t, user.Department)
	assert.Equal(t, "2", user.YearValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveUnknownEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET active = \\$2").
		WithArgs("ghost@example.edu", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "ghost@example.edu", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStudentsScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, department, year FROM users WHERE role = $1 AND department = $2 AND year = $3 ORDER BY full_name")).
		WithArgs("student", "CS", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "department", "year"}).
			AddRow("s1", "Ada", "ada@example.edu", "CS", "2"))

	students, err := repo.ListStudents(context.Background(), models.StudentScope{Department: "CS", Year: "2"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, department, year FROM users WHERE role = $1 AND department = $2 ORDER BY full_name")).
		WithArgs("student", "EE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "department", "year"}))

	students, err = repo.ListStudents(context.Background(), models.StudentScope{Department: "EE"})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NotNil(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE role = \\$1").
		WithArgs("student").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountByRole(context.Background(), models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentsByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	empty, err := repo.DepartmentsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	mock.ExpectQuery("SELECT id, department FROM users WHERE id = ANY\\(\\$1\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "department"}).
			AddRow("s1", "CS").
			AddRow("s2", "EE"))

	depts, err := repo.DepartmentsByIDs(context.Background(), []string{"s1", "s2", "s3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"s1": "CS", "s2": "EE"}, depts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionActivityApprove, Resource: "activity"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
