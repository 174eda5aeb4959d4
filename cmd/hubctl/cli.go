package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type registrar interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
}

type accountSwitch interface {
	SetActive(ctx context.Context, email string, active bool) error
}

type activitySubmitter interface {
	Submit(ctx context.Context, principal *models.User, req dto.CreateActivityRequest) (*models.Activity, error)
}

type commandLine struct {
	users      registrar
	accounts   accountSwitch
	activities activitySubmitter
	migrate    func(ctx context.Context) error
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                   - create database tables")
	fmt.Fprintln(cli.out, "  seed [-password PASSWORD]                 - insert sample student, faculty, admin and one activity")
	fmt.Fprintln(cli.out, "  createuser -email EMAIL -name NAME -role ROLE [-department D] [-year Y] - password is prompted")
	fmt.Fprintln(cli.out, "  deactivate -email EMAIL                   - block login and token use")
	fmt.Fprintln(cli.out, "  activate -email EMAIL                     - lift a deactivation")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if err := cli.migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "schema up to date")
		return nil
	case "seed":
		seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
		password := seedCmd.String("password", "password123", "Password for every sample account.")
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seed(ctx, *password)
	case "createuser":
		return cli.createUser(ctx, args[2:])
	case "deactivate", "activate":
		switchCmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
		email := switchCmd.String("email", "", "The account email.")
		if err := switchCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			switchCmd.Usage()
			return errHelp
		}
		active := args[1] == "activate"
		if err := cli.accounts.SetActive(ctx, strings.ToLower(strings.TrimSpace(*email)), active); err != nil {
			return fmt.Errorf("%s %s: %w", args[1], *email, err)
		}
		fmt.Fprintf(cli.out, "%s: active=%t\n", *email, active)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createUser(ctx context.Context, args []string) error {
	createCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	email := createCmd.String("email", "", "Login email.")
	name := createCmd.String("name", "", "Full name.")
	role := createCmd.String("role", string(models.RoleStudent), "student, faculty or admin.")
	department := createCmd.String("department", "", "Department, optional.")
	year := createCmd.String("year", "", "Year, optional.")
	if err := createCmd.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" {
		createCmd.Usage()
		return errHelp
	}
	if !models.UserRole(*role).Valid() {
		fmt.Fprintf(cli.out, "unknown role %q\n", *role)
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		createCmd.Usage()
		return errHelp
	}

	user, err := cli.users.Register(ctx, dto.RegisterRequest{
		Email:      *email,
		Password:   string(pwd),
		FullName:   *name,
		Role:       models.UserRole(*role),
		Department: department,
		Year:       year,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s (%s) id=%s\n", user.Email, user.Role, user.ID)
	return nil
}

func (cli *commandLine) seed(ctx context.Context, password string) error {
	samples := []dto.RegisterRequest{
		{Email: "student@example.com", FullName: "John Doe", Role: models.RoleStudent, Department: models.StringPtr("CS"), Year: models.StringPtr("3rd")},
		{Email: "faculty@example.com", FullName: "Dr. Smith", Role: models.RoleFaculty, Department: models.StringPtr("CS")},
		{Email: "admin@example.com", FullName: "Admin", Role: models.RoleAdmin},
	}

	var student *models.User
	for _, sample := range samples {
		sample.Password = password
		user, err := cli.users.Register(ctx, sample)
		if err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				fmt.Fprintf(cli.out, "skip %s: already registered\n", sample.Email)
				continue
			}
			return fmt.Errorf("seed %s: %w", sample.Email, err)
		}
		fmt.Fprintf(cli.out, "created %s (%s)\n", user.Email, user.Role)
		if user.Role == models.RoleStudent {
			student = user
		}
	}

	if student == nil || cli.activities == nil {
		return nil
	}
	activity, err := cli.activities.Submit(ctx, student, dto.CreateActivityRequest{
		Category:     "conference",
		Title:        "AI Conference",
		Description:  "Attended AI conference",
		Duration:     "2 days",
		SkillsGained: []string{"AI", "ML"},
	})
	if err != nil {
		return fmt.Errorf("seed activity: %w", err)
	}
	fmt.Fprintf(cli.out, "created activity %s (%s)\n", activity.Title, activity.Status)
	return nil
}
