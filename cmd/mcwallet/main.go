// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/mycitadel/mcwallet/wallet"
)

// command is a subcommand of the wallet tool.
type command interface {
	flags.Commander

	// Register adds the command to the parser.
	Register(parser *flags.Parser) error
}

func main() {
	if err := run(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) &&
			flagErr.Type == flags.ErrHelp {

			fmt.Println(err)
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := defaultConfig()
	env := &environment{cfg: &cfg}

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	commands := []command{
		newCreateCommand(env),
		newTemplateCommand(env),
		newListCommand(env),
		newShowCommand(env),
		newDeleteCommand(env),
		newIndexCommand(env),
		newAddressesCommand(env),
		newLookupCommand(env),
		newSignCommand(env),
		newSignerNameCommand(env),
	}
	for _, cmd := range commands {
		if err := cmd.Register(parser); err != nil {
			return err
		}
	}

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if err := env.setup(); err != nil {
			return err
		}
		defer env.teardown()

		return cmd.Execute(args)
	}

	_, err := parser.Parse()

	return err
}

// environment carries the state shared by the commands: the parsed options,
// the logging setup and a lazily opened wallet manager.
type environment struct {
	cfg *config

	ctx    context.Context
	cancel context.CancelFunc

	manager *wallet.Manager
}

// setup validates the options and starts logging.
func (e *environment) setup() error {
	if err := e.cfg.validate(); err != nil {
		return err
	}

	logFile := filepath.Join(e.cfg.LogDir, defaultLogFilename)
	err := initLogRotator(
		logFile, int64(e.cfg.MaxLogFileSize), e.cfg.MaxLogFiles,
	)
	if err != nil {
		return err
	}

	if err := parseAndSetDebugLevels(e.cfg.DebugLevel); err != nil {
		closeLogRotator()
		return err
	}

	e.ctx, e.cancel = signal.NotifyContext(
		context.Background(), os.Interrupt,
	)

	return nil
}

// teardown closes the manager and the log file.
func (e *environment) teardown() {
	if e.manager != nil {
		if err := e.manager.Close(); err != nil {
			log.Errorf("Unable to close wallet storage: %v", err)
		}
	}
	if e.cancel != nil {
		e.cancel()
	}
	closeLogRotator()
}

// openManager opens the wallet manager of the configured network.
func (e *environment) openManager() (*wallet.Manager, error) {
	if e.manager != nil {
		return e.manager, nil
	}

	manager, err := wallet.OpenManager(e.cfg.managerConfig())
	if err != nil {
		return nil, err
	}
	e.manager = manager

	return manager, nil
}
