package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"quizportal/internal/database"
	"quizportal/internal/entity"
	"quizportal/internal/identity"
)

var (
	readPasswordFunc   = term.ReadPassword // mockable
	migrateUpFunc      = database.Migrate
	migrateDownFunc    = database.MigrateDown
	migrateVersionFunc = database.Version

	errHelp = errors.New("help provided")
)

type accountCreator interface {
	CreateAccount(ctx context.Context, acc entity.Account) (*entity.Account, error)
}

type profileSaver interface {
	Save(ctx context.Context, uid string, data map[string]any) error
}

type commandLine struct {
	db       *sql.DB
	accounts accountCreator
	profiles profileSaver
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|version             - apply, roll back (-steps N) or show migrations")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL [-name NAME]   - create an account; the password is prompted")
	fmt.Fprintln(cli.out, "  setrole -uid UID -role N [-batch B] - write role_num and batch_id to the profile document")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "adduser":
		return cli.addUser(ctx, args[2:])
	case "setrole":
		return cli.setRole(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	switch args[0] {
	case "up":
		if err := migrateUpFunc(cli.db); err != nil {
			return err
		}
	case "down":
		fs := flag.NewFlagSet("migrate down", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		steps := fs.Int("steps", 1, "Number of migrations to roll back.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *steps < 1 {
			return fmt.Errorf("steps must be positive (got %d)", *steps)
		}
		if err := migrateDownFunc(cli.db, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("%q: no such command", args[0])
	}

	version, dirty, err := migrateVersionFunc(cli.db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	email := fs.String("email", "", "The account email. The password will be prompted next.")
	name := fs.String("name", "", "Display name.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return errHelp
	}

	hash, err := identity.HashPassword(string(pwd))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acc, err := cli.accounts.CreateAccount(ctx, entity.Account{
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		DisplayName:  *name,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s (uid %s)\n", acc.Email, acc.UID)
	return nil
}

func (cli *commandLine) setRole(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("setrole", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	uid := fs.String("uid", "", "The account uid.")
	role := fs.String("role", "", "role_num to store; above 5 is an admin.")
	batch := fs.String("batch", "", "batch_id to store; \"none\" clears it.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uid == "" || *role == "" {
		fs.Usage()
		return errHelp
	}

	roleNum, err := strconv.Atoi(*role)
	if err != nil || roleNum < 1 {
		return fmt.Errorf("role must be a positive number (got '%s')", *role)
	}

	data := map[string]any{"role_num": roleNum}
	switch *batch {
	case "":
	case "none":
		data["batch_id"] = nil
	default:
		data["batch_id"] = *batch
	}

	if err := cli.profiles.Save(ctx, *uid, data); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "profile %s updated\n", *uid)
	return nil
}
