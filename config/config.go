// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the key = value configuration of a sale
// deployment and builds its logger.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/amount"
)

// Config holds deployment settings.
type Config struct {
	DataDir  string // directory holding the config file and the database
	Network  string // "mainnet", "testnet" or "regtest"
	LogLevel string // "debug", "info", "warn" or "error"
	LogFile  string // empty logs to stderr
	DBFile   string // registry and event database; relative to DataDir
	MinClaim string // default minimum claim in whole sale tokens, e.g. "0.5"
}

// DefaultDataDir returns ~/.libsale, or .libsale when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".libsale"
	}
	return filepath.Join(home, ".libsale")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "mainnet",
		LogLevel: "info",
		LogFile:  "",
		DBFile:   "sale.db",
		MinClaim: "0",
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DBPath resolves DBFile against DataDir.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// MinClaimAmount returns MinClaim in sale-token base units.
func (c Config) MinClaimAmount() (*big.Int, error) {
	v, err := amount.Parse(c.MinClaim, amount.SaleDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMinClaim, err)
	}
	return v, nil
}

// LoadConfig reads the file at path on top of DefaultConfig. Blank lines and
// lines starting with '#' are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		switch key {
		case "datadir":
			cfg.DataDir = value
		case "network":
			cfg.Network = value
		case "loglevel":
			cfg.LogLevel = value
		case "logfile":
			cfg.LogFile = value
		case "dbfile":
			cfg.DBFile = value
		case "minclaim":
			cfg.MinClaim = value
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# libsale Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "dbfile = %s\n", cfg.DBFile)
	fmt.Fprintf(&b, "minclaim = %s\n", cfg.MinClaim)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// NewLogger builds a production zap logger at cfg.LogLevel, writing to
// cfg.LogFile when set.
func NewLogger(cfg Config) (*zap.Logger, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	if cfg.LogFile != "" {
		zc.OutputPaths = []string{cfg.LogFile}
	}
	logger, err := zc.Build(zap.Fields(zap.String("network", cfg.Network)))
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return logger, nil
}
