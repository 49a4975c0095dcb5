package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/target/clinic-session/internal/bootstrap"
)

type serveOptions struct {
	Addr string
}

func parseServeFlags(name string, args []string, defaultAddr string) (serveOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := serveOptions{Addr: defaultAddr}
	fs.StringVar(&opts.Addr, "addr", defaultAddr, "Address to listen on")

	if err := fs.Parse(args); err != nil {
		return serveOptions{}, err
	}
	return opts, nil
}

func runServeDev(cmdCtx *commandContext, args []string) error {
	opts, err := parseServeFlags("serve-dev", args, cmdCtx.Config.DevAuth.Addr)
	if err != nil {
		return err
	}

	srv, err := bootstrap.BuildDevAuth(cmdCtx.Config, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("build dev auth server: %w", err)
	}
	return bootstrap.ServeHTTP(cmdCtx.Ctx, bootstrap.ServerConfig{
		Name:              "dev-auth",
		Addr:              opts.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cmdCtx.Config.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cmdCtx.Config.HTTP.ShutdownTimeout,
		Logger:            cmdCtx.Logger,
	})
}

// runPortal serves the navigation host and keeps its session revalidated.
func runPortal(cmdCtx *commandContext, args []string) error {
	opts, err := parseServeFlags("portal", args, cmdCtx.Config.HTTP.Addr)
	if err != nil {
		return err
	}

	svc, err := cmdCtx.services()
	if err != nil {
		return err
	}
	defer cmdCtx.closeServices(svc)

	revalidator, err := svc.Revalidator()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmdCtx.Ctx)
	g.Go(func() error {
		return bootstrap.ServeHTTP(ctx, bootstrap.ServerConfig{
			Name:              "portal",
			Addr:              opts.Addr,
			Handler:           svc.Router(),
			ReadHeaderTimeout: cmdCtx.Config.HTTP.ReadHeaderTimeout,
			ShutdownTimeout:   cmdCtx.Config.HTTP.ShutdownTimeout,
			Logger:            cmdCtx.Logger,
		})
	})
	g.Go(func() error {
		return revalidator.Run(ctx)
	})
	return g.Wait()
}
