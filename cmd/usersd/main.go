// Command usersd serves the users CRUD API backed by SQLite. The database
// location comes from USERSD_DB (or the config file / --db flag).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluenthttp/fluenthttp/internal/config"
	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/users"
)

var (
	flagConfig string
	flagAddr   string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "usersd",
	Short: "Serve the users CRUD API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagAddr != "" {
			cfg.ListenAddr = flagAddr
		}
		if flagDB != "" {
			cfg.DatabasePath = flagDB
		}

		logger := logging.NewLeveledLogger(os.Stdout, "usersd", cfg.LogLevel)

		srv, err := users.NewServer(users.Config{
			ListenAddr:   cfg.ListenAddr,
			DatabasePath: cfg.DatabasePath,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		logger.Info("listening",
			logging.Field{Key: "addr", Value: cfg.ListenAddr},
			logging.Field{Key: "db", Value: cfg.DatabasePath})
		return srv.HTTPServer().ListenAndServe()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
