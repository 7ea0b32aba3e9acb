package main

import (
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "seatd",
	Short: "Seat hold and booking service for CineX screenings",
	Long: `seatd holds seats for a short time while a customer builds a cart,
turns the cart into a booking at checkout and projects per-seat availability
for every screening.

Configuration is read from an optional config file, SEATD_* environment
variables and the flags below, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file (yaml, json or toml)")
	flags.String("env", "", "environment name (dev|staging|prod)")
	flags.String("store", "", "hold and booking store (postgres|memory)")
	flags.String("db-dsn", "", "PostgreSQL DSN")
	flags.String("redis-url", "", "Redis address for sessions and carts")
	flags.Int("port", 0, "HTTP port")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("env", flags.Lookup("env"))
	_ = v.BindPFlag("store", flags.Lookup("store"))
	_ = v.BindPFlag("db.dsn", flags.Lookup("db-dsn"))
	_ = v.BindPFlag("redis.url", flags.Lookup("redis-url"))
	_ = v.BindPFlag("port", flags.Lookup("port"))
}

// loadConfig resolves the configuration for the running command. Unset flags fall
// through to the environment, the config file and the defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(v, v.GetString("config"))
}
