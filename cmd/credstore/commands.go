package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	credstore "github.com/goliatone/go-credstore"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

type app struct {
	manager *credstore.Manager
	stdin   io.Reader
	in      *bufio.Reader
	out     io.Writer
	prompt  io.Writer
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "create":
		return a.create(ctx, args)
	case "get":
		return a.get(ctx, args)
	case "check":
		return a.check(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "reset":
		return a.requestToken(ctx, args, true)
	case "reissue":
		return a.requestToken(ctx, args, false)
	case "passwd":
		return a.passwd(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "data":
		return a.data(ctx, args)
	case "migrate":
		return a.print(map[string]any{"migrated": true})
	default:
		return usageError("unknown command %q", name)
	}
}

func (a *app) create(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("create", pflag.ContinueOnError)
	password := flags.String("password", "", "account password, prompted when empty")
	level := flags.Int64("level", 0, "account level")
	verified := flags.Bool("verified", false, "create the account already verified")
	data := flags.String("data", "", "JSON object stored with the account")

	params, err := parseArgs(flags, args, 2)
	if err != nil {
		return err
	}

	input := credstore.NewAccount{
		Username: params[0],
		Email:    params[1],
		Password: *password,
		Verified: *verified,
	}
	if flags.Changed("level") {
		input.Level = level
	}
	if *data != "" {
		if input.Data, err = decodeObject(*data); err != nil {
			return err
		}
	}
	if input.Password == "" {
		if input.Password, err = a.readSecret("password: "); err != nil {
			return err
		}
	}

	var reg *credstore.Registration
	handler := credstore.NewRegisterAccountHandler(a.manager)
	err = handler.Execute(ctx, credstore.RegisterAccountMessage{
		Username:     input.Username,
		Email:        input.Email,
		Password:     input.Password,
		Level:        input.Level,
		Verified:     input.Verified,
		Data:         input.Data,
		OnRegistered: func(r *credstore.Registration) { reg = r },
	})
	if err != nil {
		return err
	}
	return a.print(reg)
}

func (a *app) get(ctx context.Context, args []string) error {
	params, err := parseArgs(pflag.NewFlagSet("get", pflag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	profile, err := a.manager.Get(ctx, credstore.ParseIdentifier(params[0]))
	if err != nil {
		return err
	}
	return a.print(profile)
}

func (a *app) check(ctx context.Context, args []string) error {
	params, err := parseArgs(pflag.NewFlagSet("check", pflag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	exists, err := a.manager.Check(ctx, params[0])
	if err != nil {
		return err
	}
	return a.print(map[string]any{"username": params[0], "exists": exists})
}

func (a *app) login(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	password := flags.String("password", "", "account password, prompted when empty")

	params, err := parseArgs(flags, args, 1)
	if err != nil {
		return err
	}
	if *password == "" {
		if *password, err = a.readSecret("password: "); err != nil {
			return err
		}
	}

	result, err := a.manager.Login(ctx, params[0], *password)
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) verify(ctx context.Context, args []string) error {
	params, err := parseArgs(pflag.NewFlagSet("verify", pflag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	var identity *credstore.Identity
	err = credstore.NewVerifyAccountHandler(a.manager).Execute(ctx, credstore.VerifyAccountMessage{
		Token:      params[0],
		OnVerified: func(id *credstore.Identity) { identity = id },
	})
	if err != nil {
		return err
	}
	return a.print(identity)
}

func (a *app) requestToken(ctx context.Context, args []string, revoke bool) error {
	params, err := parseArgs(pflag.NewFlagSet("token", pflag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	var grant *credstore.TokenGrant
	err = credstore.NewVerificationRequestHandler(a.manager).Execute(ctx, credstore.VerificationRequestMessage{
		Identifier: credstore.ParseIdentifier(params[0]),
		Revoke:     revoke,
		OnToken:    func(g *credstore.TokenGrant) { grant = g },
	})
	if err != nil {
		return err
	}
	return a.print(grant)
}

func (a *app) passwd(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("passwd", pflag.ContinueOnError)
	credential := flags.String("credential", "", "verification token or current password, prompted when empty")
	password := flags.String("password", "", "new password, prompted when empty")

	params, err := parseArgs(flags, args, 1)
	if err != nil {
		return err
	}
	if *credential == "" {
		if *credential, err = a.readSecret("token or current password: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.readSecret("new password: "); err != nil {
			return err
		}
	}

	var identity *credstore.Identity
	err = credstore.NewChangePasswordHandler(a.manager).Execute(ctx, credstore.ChangePasswordMessage{
		Login:      params[0],
		Credential: *credential,
		Password:   *password,
		OnChanged:  func(id *credstore.Identity) { identity = id },
	})
	if err != nil {
		return err
	}
	return a.print(identity)
}

func (a *app) delete(ctx context.Context, args []string) error {
	params, err := parseArgs(pflag.NewFlagSet("delete", pflag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return goerrors.New("account id must be numeric", goerrors.CategoryValidation).
			WithTextCode(credstore.TextCodeInvalidIdentifier).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := a.manager.Delete(ctx, id); err != nil {
		return err
	}
	return a.print(map[string]any{"id": id, "deleted": true})
}

func (a *app) data(ctx context.Context, args []string) error {
	params, err := parseArgs(pflag.NewFlagSet("data", pflag.ContinueOnError), args, 2)
	if err != nil {
		return err
	}

	data, err := decodeObject(params[1])
	if err != nil {
		return err
	}

	ident := credstore.ParseIdentifier(params[0])
	if err := a.manager.UpdateData(ctx, ident, data); err != nil {
		return err
	}
	return a.print(map[string]any{"account": ident.String(), "updated": true})
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSecret reads without echo from a terminal, or one line otherwise.
func (a *app) readSecret(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.prompt, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.prompt)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read secret")
		}
		return string(raw), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read secret")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseArgs(flags *pflag.FlagSet, args []string, want int) ([]string, error) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return nil, usageError("%s: %v", flags.Name(), err)
	}
	if flags.NArg() != want {
		return nil, usageError("%s expects %d argument(s), got %d", flags.Name(), want, flags.NArg())
	}
	return flags.Args(), nil
}

func decodeObject(raw string) (map[string]any, error) {
	data := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "data must be a JSON object").
			WithCode(goerrors.CodeBadRequest)
	}
	return data, nil
}

func usageError(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest)
}
