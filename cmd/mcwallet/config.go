// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/mycitadel/mcwallet/wallet"
)

const (
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "mcwallet.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10 * 1024
	defaultNetwork        = "testnet"
	defaultDBDriver       = "sqlite"
)

var defaultAppDataDir = btcutil.AppDataDir("mcwallet", false)

// config defines the global options of every command.
type config struct {
	AppDataDir     string `short:"A" long:"appdata" description:"Application data directory holding the wallet registry and the SQLite address index"`
	Network        string `long:"network" description:"Bitcoin network of new wallets" choice:"mainnet" choice:"testnet" choice:"signet"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} or <subsystem>=<level>,... pairs"`
	LogDir         string `long:"logdir" description:"Directory to log output"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in KB"`
	DBDriver       string `long:"dbdriver" description:"Address index backend" choice:"sqlite" choice:"postgres"`
	DBDSN          string `long:"dbdsn" description:"PostgreSQL connection string, required with --dbdriver=postgres"`

	network wallet.Network
}

// defaultConfig returns the options used when no flag overrides them.
func defaultConfig() config {
	return config{
		AppDataDir:     defaultAppDataDir,
		Network:        defaultNetwork,
		DebugLevel:     defaultLogLevel,
		LogDir:         filepath.Join(defaultAppDataDir, defaultLogDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		DBDriver:       defaultDBDriver,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser
	// to otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	if path[0] == '~' {
		var homeDir string

		userName, rest, _ := strings.Cut(path[1:], "/")
		if userName == "" {
			homeDir, _ = os.UserHomeDir()
		} else if u, err := user.Lookup(userName); err == nil {
			homeDir = u.HomeDir
		}
		if homeDir != "" {
			path = filepath.Join(homeDir, rest)
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// validate checks the parsed options and fills the derived fields.
func (c *config) validate() error {
	appDataDirChanged := c.AppDataDir != defaultAppDataDir

	c.AppDataDir = cleanAndExpandPath(c.AppDataDir)
	if appDataDirChanged &&
		c.LogDir == filepath.Join(defaultAppDataDir, defaultLogDirname) {

		c.LogDir = filepath.Join(c.AppDataDir, defaultLogDirname)
	}
	c.LogDir = cleanAndExpandPath(c.LogDir)

	network, err := wallet.ParseNetwork(c.Network)
	if err != nil {
		return err
	}
	c.network = network

	if c.MaxLogFiles < 0 || c.MaxLogFileSize <= 0 {
		return fmt.Errorf("invalid log rotation limits: %d files of %d "+
			"KB", c.MaxLogFiles, c.MaxLogFileSize)
	}

	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("--dbdsn is required with --dbdriver=postgres")
	}

	return nil
}

// managerConfig returns the storage configuration of the wallet manager.
func (c *config) managerConfig() wallet.ManagerConfig {
	return wallet.ManagerConfig{
		DataDir:  filepath.Join(c.AppDataDir, c.Network),
		DBDriver: c.DBDriver,
		DBDSN:    c.DBDSN,
	}
}
