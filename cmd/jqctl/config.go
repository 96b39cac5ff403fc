package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/config"
	"github.com/aatumaykin/jobqueue/internal/constants"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect the jqctl configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf(constants.MsgConfigLoadError, err)
		}

		out := cmd.OutOrStdout()
		if errors := cfg.Validate(); len(errors) > 0 {
			fmt.Fprint(out, constants.MsgConfigValidationError)
			for _, e := range errors {
				fmt.Fprintf(out, constants.MsgConfigValidatePrefix, e)
			}
			return fmt.Errorf("%d configuration error(s) in %s", len(errors), path)
		}
		fmt.Fprintf(out, constants.MsgConfigValid, path)
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, environment variables and
command line overrides are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootOutput != outputText {
			return render(cmd.OutOrStdout(), app.cfg, nil)
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(app.cfg)
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
