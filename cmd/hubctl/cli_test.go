package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

type fakeRegistrar struct {
	requests []dto.RegisterRequest
	existing map[string]bool
}

func (f *fakeRegistrar) Register(_ context.Context, req dto.RegisterRequest) (*models.User, error) {
	if f.existing[req.Email] {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	f.requests = append(f.requests, req)
	return &models.User{ID: "id-" + req.Email, Email: req.Email, Role: req.Role, FullName: req.FullName}, nil
}

type fakeAccounts struct {
	email  string
	active *bool
	err    error
}

func (f *fakeAccounts) SetActive(_ context.Context, email string, active bool) error {
	f.email = email
	f.active = &active
	return f.err
}

type fakeSubmitter struct {
	owner string
	req   dto.CreateActivityRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, principal *models.User, req dto.CreateActivityRequest) (*models.Activity, error) {
	f.owner = principal.ID
	f.req = req
	return &models.Activity{ID: "act-1", Title: req.Title, Status: models.ActivityPending}, nil
}

func newTestCLI() (*commandLine, *fakeRegistrar, *fakeAccounts, *bytes.Buffer) {
	reg := &fakeRegistrar{existing: map[string]bool{}}
	accounts := &fakeAccounts{}
	out := &bytes.Buffer{}
	return &commandLine{
		users:    reg,
		accounts: accounts,
		migrate:  func(context.Context) error { return nil },
		out:      out,
	}, reg, accounts, out
}

func stubPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	original := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = original })
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	cli, _, _, out := newTestCLI()
	err := cli.run(context.Background(), []string{"hubctl"})
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, out.String(), "Usage:")

	err = cli.run(context.Background(), []string{"hubctl", "unknown"})
	assert.ErrorIs(t, err, errHelp)
}

func TestRunMigrate(t *testing.T) {
	cli, _, _, out := newTestCLI()
	called := false
	cli.migrate = func(context.Context) error {
		called = true
		return nil
	}

	require.NoError(t, cli.run(context.Background(), []string{"hubctl", "migrate"}))
	assert.True(t, called)
	assert.Contains(t, out.String(), "schema up to date")

	cli.migrate = func(context.Context) error { return errors.New("boom") }
	assert.Error(t, cli.run(context.Background(), []string{"hubctl", "migrate"}))
}

func TestRunCreateUserPromptsForPassword(t *testing.T) {
	cli, reg, _, _ := newTestCLI()
	stubPassword(t, "s3cret-pass", nil)

	err := cli.run(context.Background(), []string{"hubctl", "createuser", "-email", "dean@hub.edu", "-name", "Dean", "-role", "admin"})
	require.NoError(t, err)
	require.Len(t, reg.requests, 1)
	assert.Equal(t, "s3cret-pass", reg.requests[0].Password)
	assert.Equal(t, models.RoleAdmin, reg.requests[0].Role)
}

func TestRunCreateUserRequiresPassword(t *testing.T) {
	cli, reg, _, _ := newTestCLI()
	stubPassword(t, "", nil)

	err := cli.run(context.Background(), []string{"hubctl", "createuser", "-email", "dean@hub.edu", "-name", "Dean"})
	assert.ErrorIs(t, err, errHelp)
	assert.Empty(t, reg.requests)
}

func TestRunCreateUserRequiresEmail(t *testing.T) {
	cli, _, _, _ := newTestCLI()
	err := cli.run(context.Background(), []string{"hubctl", "createuser", "-name", "Dean"})
	assert.ErrorIs(t, err, errHelp)
}

func TestRunCreateUserRejectsUnknownRole(t *testing.T) {
	cli, reg, _, out := newTestCLI()
	prompted := false
	original := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) {
		prompted = true
		return []byte("s3cret-pass"), nil
	}
	t.Cleanup(func() { readPasswordFunc = original })

	err := cli.run(context.Background(), []string{"hubctl", "createuser", "-email", "dean@hub.edu", "-name", "Dean", "-role", "dean"})
	assert.ErrorIs(t, err, errHelp)
	assert.False(t, prompted)
	assert.Empty(t, reg.requests)
	assert.Contains(t, out.String(), `unknown role "dean"`)
}

func TestRunDeactivateAndActivate(t *testing.T) {
	cli, _, accounts, _ := newTestCLI()

	require.NoError(t, cli.run(context.Background(), []string{"hubctl", "deactivate", "-email", " Ana@Hub.edu "}))
	assert.Equal(t, "ana@hub.edu", accounts.email)
	require.NotNil(t, accounts.active)
	assert.False(t, *accounts.active)

	require.NoError(t, cli.run(context.Background(), []string{"hubctl", "activate", "-email", "ana@hub.edu"}))
	assert.True(t, *accounts.active)

	accounts.err = errors.New("no rows")
	assert.Error(t, cli.run(context.Background(), []string{"hubctl", "activate", "-email", "ghost@hub.edu"}))
}

func TestRunSeed(t *testing.T) {
	cli, reg, _, out := newTestCLI()
	submitter := &fakeSubmitter{}
	cli.activities = submitter
	reg.existing["admin@example.com"] = true

	require.NoError(t, cli.run(context.Background(), []string{"hubctl", "seed", "-password", "sample-pass"}))

	require.Len(t, reg.requests, 2)
	for _, req := range reg.requests {
		assert.Equal(t, "sample-pass", req.Password)
	}
	assert.Equal(t, "id-student@example.com", submitter.owner)
	assert.Equal(t, "AI Conference", submitter.req.Title)
	assert.Contains(t, out.String(), "skip admin@example.com")
}

func TestRunSeedWithoutActivityStore(t *testing.T) {
	cli, reg, _, _ := newTestCLI()
	require.NoError(t, cli.run(context.Background(), []string{"hubctl", "seed"}))
	assert.Len(t, reg.requests, 3)
	assert.Equal(t, "password123", reg.requests[0].Password)
}
