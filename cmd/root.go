package cmd

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "toto",
	Short: "Toto workshop backend",
	Long: `Backend for the workshop's work order grid: a REST API with realtime
updates, a subscription worker and maintenance commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/config.yaml)")
}

func initConfig() {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}
}

// loadConfig reads the configuration and applies its logging settings
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return config.Config{}, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	if level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil && cfg.Logging.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Logging.Format == "json" && cfg.Environment != "development" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("env", cfg.Environment).Logger()
	}
}

// openDatabase connects and migrates the schema
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return db, nil
}
