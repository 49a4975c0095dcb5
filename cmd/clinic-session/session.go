package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/redirect"
	"github.com/target/clinic-session/internal/service"
)

type loginOptions struct {
	Email    string
	Password string
}

type googleOptions struct {
	IDToken string
}

type whoamiOptions struct {
	JSON bool
}

type watchOptions struct {
	Interval time.Duration
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readLine(cmdCtx.Stdin); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	if strings.TrimSpace(opts.Email) == "" || opts.Password == "" {
		return errors.New("--email and a password are required")
	}

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	env, err := svc.Gateway.Login(cmdCtx.Ctx, strings.TrimSpace(opts.Email), opts.Password)
	if err != nil {
		return reportLoginFailure(cmdCtx, err)
	}
	landing, err := svc.Gateway.CompleteLogin(cmdCtx.Ctx, env.Payload)
	if err != nil {
		return reportLoginFailure(cmdCtx, err)
	}
	return printSignedIn(cmdCtx.Stdout, svc.Store.Current(), landing)
}

func runLoginGoogle(cmdCtx *commandContext, args []string) error {
	opts, err := parseGoogleFlags(args)
	if err != nil {
		return err
	}
	if opts.IDToken == "" {
		if opts.IDToken, err = readLine(cmdCtx.Stdin); err != nil {
			return fmt.Errorf("read ID token: %w", err)
		}
	}
	if opts.IDToken == "" {
		return errors.New("--id-token is required")
	}

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	if svc.Verifier == nil {
		return errors.New("google sign-in is not configured (set AUTH_GOOGLE_CLIENT_ID)")
	}
	claims, err := svc.Verifier.Verify(cmdCtx.Ctx, opts.IDToken)
	if err != nil {
		return reportLoginFailure(cmdCtx, err)
	}
	env, err := svc.Gateway.LoginExternal(cmdCtx.Ctx, claims)
	if err != nil {
		return reportLoginFailure(cmdCtx, err)
	}
	landing, err := svc.Gateway.CompleteLogin(cmdCtx.Ctx, env.Payload)
	if err != nil {
		return reportLoginFailure(cmdCtx, err)
	}
	return printSignedIn(cmdCtx.Stdout, svc.Store.Current(), landing)
}

func reportLoginFailure(cmdCtx *commandContext, err error) error {
	msg := service.LoginMessage(err)
	if apperrors.IsAuthentication(err) || apperrors.IsValidation(err) {
		msg = apperrors.GetMessage(err)
	}
	if werr := writef(cmdCtx.Stdout, "Login failed: %s\n", msg); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

func printSignedIn(w io.Writer, identity *domainauth.Identity, landing string) error {
	if identity == nil {
		return errors.New("no session after login")
	}
	return writef(w, "Signed in as %s <%s> (%s)\nLanding route: %s\n",
		identity.FullName, identity.Email, identity.Role, landing)
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts whoamiOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print the identity as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	identity := svc.Store.Current()
	if opts.JSON {
		enc := json.NewEncoder(cmdCtx.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(whoamiView(identity, svc.Store.Credential().ExpiresAt))
	}
	if identity == nil {
		return writef(cmdCtx.Stdout, "Not signed in\n")
	}
	return writef(cmdCtx.Stdout, "%s <%s>\n  user id:  %s\n  role:     %s\n  expires:  %s\n  landing:  %s\n",
		identity.FullName, identity.Email, identity.UserID, identity.Role,
		svc.Store.Credential().ExpiresAt.Format(time.RFC3339), redirect.LandingRouteFor(identity))
}

type whoamiOutput struct {
	SignedIn  bool                 `json:"signedIn"`
	Identity  *domainauth.Identity `json:"identity,omitempty"`
	ExpiresAt string               `json:"expiresAt,omitempty"`
	Landing   string               `json:"landing"`
}

func whoamiView(identity *domainauth.Identity, expiresAt time.Time) whoamiOutput {
	out := whoamiOutput{SignedIn: identity != nil, Identity: identity, Landing: redirect.LandingRouteFor(identity)}
	if identity != nil {
		out.ExpiresAt = domainauth.FormatExpiry(expiresAt)
	}
	return out
}

func runValidate(cmdCtx *commandContext, _ []string) error {
	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	if err := svc.Gateway.Revalidate(cmdCtx.Ctx); err != nil {
		if apperrors.IsAuthentication(err) {
			if werr := writef(cmdCtx.Stdout, "Session ended: %s\n", apperrors.GetMessage(err)); werr != nil {
				return errors.Join(err, werr)
			}
		}
		return err
	}
	return writef(cmdCtx.Stdout, "Session is valid\n")
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	route, err := svc.Gateway.Logout(cmdCtx.Ctx)
	if werr := writef(cmdCtx.Stdout, "Signed out. Redirect: %s\n", route); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

func runNavigate(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: clinic-session navigate <path>")
	}

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	res := svc.Navigator.Navigate(args[0])
	if !res.Redirected() {
		return writef(cmdCtx.Stdout, "%s: entered\n", res.Target)
	}
	reason := "redirect"
	if !res.Decision.Allowed() {
		reason = res.Decision.Outcome.String()
	}
	return writef(cmdCtx.Stdout, "%s -> %s (%s)\n", res.Requested, res.Target, reason)
}

func runWatch(cmdCtx *commandContext, args []string) error {
	opts, err := parseWatchFlags(args, cmdCtx.Config.Auth.RevalidateInterval)
	if err != nil {
		return err
	}
	cmdCtx.Config.Auth.RevalidateInterval = opts.Interval

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	sub := svc.Store.Subscribe(func(identity *domainauth.Identity) {
		var werr error
		if identity == nil {
			werr = writef(cmdCtx.Stdout, "[%s] signed out\n", time.Now().Format(time.TimeOnly))
		} else {
			werr = writef(cmdCtx.Stdout, "[%s] signed in as %s (%s)\n", time.Now().Format(time.TimeOnly), identity.Email, identity.Role)
		}
		if werr != nil {
			cmdCtx.Logger.Warn("write session change", "error", werr)
		}
	})
	defer sub.Unsubscribe()

	revalidator, err := svc.Revalidator()
	if err != nil {
		return err
	}
	return revalidator.Run(cmdCtx.Ctx)
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Email, "email", "", "Account email")
	fs.StringVar(&opts.Password, "password", "", "Account password (read from stdin when omitted)")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	return opts, nil
}

func parseGoogleFlags(args []string) (googleOptions, error) {
	fs := flag.NewFlagSet("login-google", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts googleOptions
	fs.StringVar(&opts.IDToken, "id-token", "", "Google ID token (read from stdin when omitted)")

	if err := fs.Parse(args); err != nil {
		return googleOptions{}, err
	}
	return opts, nil
}

func parseWatchFlags(args []string, defaultInterval time.Duration) (watchOptions, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := watchOptions{Interval: defaultInterval}
	fs.DurationVar(&opts.Interval, "interval", defaultInterval, "Revalidation interval; 0 disables revalidation")

	if err := fs.Parse(args); err != nil {
		return watchOptions{}, err
	}
	if opts.Interval < 0 {
		return watchOptions{}, errors.New("--interval must not be negative")
	}
	return opts, nil
}

func readLine(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
