package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/triagehq/labelbot/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "labelbot",
	Short: "Labelbot - GitHub issue labeling from comment commands",
	Long: `Labelbot watches issue comments for label commands addressed to its
handle and applies them to the issue.

It runs as two processes: "serve" receives GitHub webhooks, verifies
their signatures, and enqueues comment events; "worker" consumes the
queue, parses commands, validates labels against the repository, and
applies the mutation.

Example:
  labelbot serve --listen :8080
  labelbot worker`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .labelbot.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".labelbot")
	}

	viper.SetEnvPrefix("LABELBOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
