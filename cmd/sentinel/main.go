package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/sentinelConfig"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Observe bridge contract events and vote them onto the host chain",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var configFile string
var Config *sentinelConfig.SentinelConfig

func init() {
	cobra.OnInitialize(initConfigIfPresent)

	rootCmd.PersistentFlags().StringVar(&configFile, sentinelConfig.ConfigFile, "", "config file path")

	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(sentinelConfig.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().String(sentinelConfig.KeystoreDir, "", "directory holding the node's signing keys")

	// setup sub commands
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(sentinelConfig.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func initConfigIfPresent() {
	hasConfig := false
	if configFile != "" {
		viper.SetConfigFile(configFile)
		hasConfig = true
	}
	if hasConfig {
		fmt.Printf("Using config file: %s\n", configFile)
		if err := viper.ReadInConfig(); err != nil {
			panic(err)
		}
		if err := viper.Unmarshal(&Config); err != nil {
			panic(err)
		}
	} else {
		Config = sentinelConfig.NewSentinelConfig()
	}
}

func main() {
	Execute()
}
