// Package cli implements the discovery-agent CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/logging"
	"github.com/rcliao/discovery-agent/internal/session"
)

var (
	dbPath     string
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "discovery-agent",
	Short: "Autonomous research discovery over a document corpus",
	Long: "Mines research gaps from an analyzed literature corpus, generates and scores\n" +
		"hypotheses, and tests them against materials-property data. SQLite-backed sessions,\n" +
		"single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Session database path (default: $DISCOVERY_AGENT_DB or ~/.discovery-agent/sessions.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults plus environment when omitted)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("DISCOVERY_AGENT_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".discovery-agent", "sessions.db")
}

func openStore() (*session.SQLiteStore, error) {
	return session.NewSQLiteStore(getDBPath())
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger() *zap.Logger {
	return logging.New(verbose)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
