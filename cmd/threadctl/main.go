// Command threadctl runs operator tasks against the threadline database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sushihentaime/threadline/internal/common"
)

var (
	envFile string
	logger  = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:           "threadctl",
	Short:         "Operator tasks for threadline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to the env file holding the POSTGRES_* settings")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type dbConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     string `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	Name     string `mapstructure:"POSTGRES_DB"`
}

func (c dbConfig) toDB() common.DBConfig {
	return common.DBConfig{
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Name:         c.Name,
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxIdleTime:  time.Minute,
	}
}

// loadDBConfig reads the database settings the same way the server does. A missing env file is not an error
// when the variables are set in the environment.
func loadDBConfig() (dbConfig, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for _, key := range []string{"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return dbConfig{}, err
	}

	var cfg dbConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return dbConfig{}, err
	}

	if cfg.User == "" || cfg.Name == "" {
		return dbConfig{}, errors.New("POSTGRES_USER and POSTGRES_DB must be set")
	}

	return cfg, nil
}

func openDB(ctx context.Context, cfg dbConfig) (*sql.DB, error) {
	return common.OpenDB(ctx, cfg.toDB())
}
