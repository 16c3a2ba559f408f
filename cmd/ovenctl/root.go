package main

import (
	"fmt"
	"os"

	"drying_oven/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settings collects defaults, the config file, OVEN_* env and bound flags.
var settings = config.New()

var rootCmd = &cobra.Command{
	Use:   "ovenctl",
	Short: "Drying oven controller",
	Long: `ovenctl runs either end of the oven serial link: the supervisory host
(policy controller, HTTP API, event log) or the actuator client.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("serial", "", "serial device or tcp://host:port bridge")
	mustBind(settings, "log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBind(settings, "serial.address", rootCmd.PersistentFlags().Lookup("serial"))
}

// mustBind ties a config key to a flag; flags win over file and env once set.
func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(settings, file)
}
