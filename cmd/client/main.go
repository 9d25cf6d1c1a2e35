// Package main is the interactive todo shell. It keeps the access token and
// tasks drafted while signed out in a local JSON file and talks to the task
// API over HTTP(S).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/client/api"
	"github.com/atinyakov/GophTodo/internal/client/prompt"
	"github.com/atinyakov/GophTodo/internal/client/session"
	"github.com/atinyakov/GophTodo/internal/client/storage"
	"github.com/atinyakov/GophTodo/internal/client/tasks"
	"github.com/atinyakov/GophTodo/internal/config"
	"github.com/atinyakov/GophTodo/internal/logger"
)

var (
	version   string
	buildDate string
)

func main() {
	opts, err := config.ParseClient(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.ShowVersion {
		fmt.Printf("GophTodo Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.InitConsole(opts.LogLevel, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	sh, err := newShell(opts, prompt.New(os.Stdin, os.Stdout), os.Stdout, log.Log)
	if err != nil {
		log.Log.Fatal("failed to start shell", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	sh.run(ctx)
}

// newShell wires storage, the API client, the session and the task store.
func newShell(opts *config.ClientOptions, in *prompt.Prompter, out io.Writer, log *zap.Logger) (*shell, error) {
	ls := storage.NewLocalStorage(opts.StoragePath, log)
	if err := ls.LoadOrReset(); err != nil {
		return nil, err
	}
	tokens := storage.NewTokenStore(ls)
	pending := storage.NewPendingBuffer(ls)

	httpClient, err := storage.NewHTTPClient(opts.CAFile, time.Duration(opts.Timeout))
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Options{
		BaseURL:    opts.APIURL,
		HTTPClient: httpClient,
		Tokens:     tokens,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(client, tokens, log)
	client.SetOnUnauthorized(mgr.HandleUnauthorized)

	return newREPL(in, out, mgr, tasks.NewStore(client, log), pending, log), nil
}
