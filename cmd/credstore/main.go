// Command credstore manages accounts in a credential store from the shell.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	credstore "github.com/goliatone/go-credstore"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/pflag"
)

const usage = `usage: credstore [flags] <command> [args]

commands:
  create <username> <email>    create an account
  get <id|username>            print the account profile
  check <username>             report whether a username is taken
  login <username|email>       authenticate a verified account
  verify <token>               consume a verification token
  reset <id|username>          issue a token and revoke verification
  reissue <id|username>        issue a token keeping verification
  passwd <username|email>      change a password with a token or the current password
  delete <id>                  delete an account
  data <id|username> <json>    replace the account data blob
  migrate                      apply database migrations

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := globalFlags()
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	rest := flags.Args()
	if len(rest) == 0 || rest[0] == "help" {
		flags.Usage()
		if len(rest) == 0 {
			return 2
		}
		return 0
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		writeError(stderr, err)
		return 2
	}

	log, err := newLogger(cfg.Debug, cfg.Events)
	if err != nil {
		writeError(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if rest[0] == "migrate" {
		cfg.Store.Migrate = true
	}

	db, err := credstore.Open(ctx, cfg.Store)
	if err != nil {
		writeError(stderr, err)
		return 1
	}
	defer db.Close()

	opts := []credstore.Option{credstore.WithLogger(zapLogger{log: log.Sugar()})}
	if cfg.Events {
		opts = append(opts, credstore.WithActivitySink(eventSink(log)))
	}

	repo := credstore.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		writeError(stderr, err)
		return 1
	}

	manager := credstore.NewManagerFromConfig(repo, cfg.Store, opts...)
	defer manager.Wait()

	a := &app{
		manager: manager,
		stdin:   stdin,
		in:      bufio.NewReader(stdin),
		out:     stdout,
		prompt:  stderr,
	}

	if err := a.dispatch(ctx, rest[0], rest[1:]); err != nil {
		writeError(stderr, err)
		return exitCode(err)
	}

	return 0
}

func writeError(w io.Writer, err error) {
	payload := map[string]any{"error": err.Error()}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		payload["error"] = richErr.Message
		payload["category"] = richErr.Category.String()
		if richErr.TextCode != "" {
			payload["text_code"] = richErr.TextCode
		}
	}

	_ = json.NewEncoder(w).Encode(payload)
}

func exitCode(err error) int {
	switch {
	case credstore.IsValidationError(err):
		return 2
	case credstore.IsNotFoundError(err):
		return 3
	case credstore.IsAuthenticationError(err):
		return 4
	case credstore.IsConflictError(err):
		return 5
	default:
		return 1
	}
}
