// Package main runs the Realtivo interactive client.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/client/api"
	"github.com/atinyakov/realtivo/internal/client/session"
	"github.com/atinyakov/realtivo/internal/client/shell"
	"github.com/atinyakov/realtivo/internal/client/storage"
	"github.com/atinyakov/realtivo/internal/config"
	"github.com/atinyakov/realtivo/internal/logger"
)

var (
	version   string
	buildDate string
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Printf("Realtivo Client\nVersion: %s\nBuild Date: %s\n", orNA(version), orNA(buildDate))
		return
	}

	options, err := config.ParseClient(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// The shell owns the terminal, so logs only go to a file when asked.
	lg := logger.New()
	defer func() { _ = lg.Log.Sync() }()
	if err := lg.InitTo("info", options.LogFile); err != nil {
		log.Fatal(err)
	}

	store := storage.NewFileStore(options.StorageFile)
	if err := store.Load(); err != nil {
		lg.Log.Warn("cannot load client storage", zap.String("path", options.StorageFile), zap.Error(err))
	}

	var sh *shell.Shell
	sess := session.New(store,
		session.WithLogger(lg.Log),
		session.WithOnLogout(func() {
			if sh != nil {
				sh.LoggedOut()
			}
		}),
	)
	sess.Restore()

	hc, err := api.NewHTTPClient(options.Timeout, options.CAFile)
	if err != nil {
		log.Fatal(err)
	}
	backend := api.New(options.BaseURL, options.PathPrefix, hc, sess)

	in, err := shell.NewLineInput(options.HistoryFile)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	sh = shell.New(shell.Config{
		In:      in,
		Out:     os.Stdout,
		Backend: backend,
		Session: sess,
		Logger:  lg.Log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := sh.Run(ctx); err != nil {
		lg.Log.Error("shell stopped", zap.Error(err))
		os.Exit(1)
	}
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
