// Package cli implements the twin CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Allreality/my-twin/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	dbPath       string
	formatFlag   string
	sessionFlag  string
	locationFlag string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "twin",
	Short: "A digital twin with memory and emotional state",
	Long: "A digital twin that remembers. Each turn is answered with a prompt assembled from " +
		"personality, emotional state, long-term memories and recent conversation. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ~/.my-twin/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $TWIN_DB_PATH or ~/.my-twin/twin.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "Session ID (default: cli)")
	RootCmd.PersistentFlags().StringVarP(&locationFlag, "location", "l", "", "Location / conversation mode (default: personality.location)")
}

// settings loads configuration once and applies flag overrides.
func settings() *config.Config {
	if cfg != nil {
		return cfg
	}
	c, err := config.Load(configFile)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		c.DB.Path = dbPath
	}
	if locationFlag != "" {
		c.Personality.Location = locationFlag
	}
	slog.SetDefault(c.Logger())
	cfg = c
	return cfg
}

func getDBPath() string {
	return settings().DB.Path
}

// sessionID returns --session, or "cli" when unset.
func sessionID() string {
	if sessionFlag != "" {
		return sessionFlag
	}
	return "cli"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
