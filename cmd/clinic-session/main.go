package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/target/clinic-session/config"
	"github.com/target/clinic-session/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer

	buildServices func(context.Context, bootstrap.ServiceDeps) (*bootstrap.ServiceContainer, error)
}

var errUsage = errors.New("usage")

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.Observability)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:           ctx,
		Logger:        logger,
		Config:        cfg,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		buildServices: bootstrap.BuildServices,
	}
	err = dispatch(cmdCtx, os.Args[1:])
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status on usage errors
	default:
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func dispatch(cmdCtx *commandContext, args []string) error {
	if len(args) < 1 {
		if err := printUsage(cmdCtx.Stdout); err != nil {
			return err
		}
		return errUsage
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		if err := writef(cmdCtx.Stdout, "unknown command %q\n\n", args[0]); err != nil {
			return err
		}
		if err := printUsage(cmdCtx.Stdout); err != nil {
			return err
		}
		return errUsage
	}
	return cmd.run(cmdCtx, args[1:])
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with email and password",
			run:         runLogin,
		},
		"login-google": {
			name:        "login-google",
			description: "Sign in with a Google ID token",
			run:         runLoginGoogle,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in identity",
			run:         runWhoami,
		},
		"validate": {
			name:        "validate",
			description: "Ask the auth server whether the session token is still accepted",
			run:         runValidate,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and erase the persisted session",
			run:         runLogout,
		},
		"navigate": {
			name:        "navigate",
			description: "Resolve where a navigation to <path> lands for the current session",
			run:         runNavigate,
		},
		"watch": {
			name:        "watch",
			description: "Print session changes and revalidate periodically until interrupted",
			run:         runWatch,
		},
		"serve-dev": {
			name:        "serve-dev",
			description: "Run the development auth server with demo accounts",
			run:         runServeDev,
		},
		"portal": {
			name:        "portal",
			description: "Run the HTTP navigation host",
			run:         runPortal,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: clinic-session <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-14s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

// services builds the session components for one command. The caller closes them.
func (c *commandContext) services() (*bootstrap.ServiceContainer, error) {
	return c.buildServices(c.Ctx, bootstrap.ServiceDeps{Config: c.Config, Logger: c.Logger})
}

func (c *commandContext) closeServices(svc *bootstrap.ServiceContainer) {
	if err := svc.Close(); err != nil {
		c.Logger.Warn("close services", "error", err)
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
