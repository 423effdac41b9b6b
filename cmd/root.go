package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/app"
	"github.com/flbest/standards-crawler/internal/config"
	"github.com/flbest/standards-crawler/internal/logging"
	"github.com/flbest/standards-crawler/internal/store"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the dependency surface commands pull from the context. An
// interface so tests can inject a fake without a database.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetStore() store.CrawlStore
	GetCheckpoint() store.CheckpointStore
}

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// initConfig wires Viper to environment variables and the optional
// config file.
func initConfig() {
	v := viper.GetViper()
	v.SetEnvPrefix("STANDARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			logging.L.Fatal("Failed to read config file", zap.Error(err))
		}
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standards",
		Short: "Florida B.E.S.T. benchmark crawler and lookup tool",
		Long: `standards maintains a relational snapshot of Florida B.E.S.T.
benchmarks and their CPALMS teaching resources. It crawls benchmark
pages politely with checkpointed resume, and resolves free-text
benchmark queries against the ingested set.`,

		// Runs after config is loaded but before the subcommand's RunE,
		// so every command finds a fully built App in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars used otherwise)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newMatchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
