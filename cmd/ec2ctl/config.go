package main

import (
	"fmt"
	"io"

	"ec2ctl/internal/config"
	"ec2ctl/pkg/logging"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configFs is where config init writes
var configFs = afero.NewOsFs()

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Manage the ec2ctl configuration file.

Examples:
  ec2ctl config init                    # Write a sample configuration
  ec2ctl config show                    # Show the effective configuration
  ec2ctl config validate                # Check the configuration`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a sample configuration file",
	Long:        `Write a commented sample configuration to $HOME/` + config.FileName + ` (or --config).`,
	Annotations: map[string]string{skipConfigLoad: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return initializeConfigFile(cmd.ErrOrStderr(), force)
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfiguration(cmd.OutOrStdout())
	},
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Validate the configuration",
	Long:        `Validate the region, parallelism, timeout, output format and log level settings.`,
	Annotations: map[string]string{skipConfigLoad: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateConfiguration()
	},
}

// initializeConfigFile writes the sample configuration and returns errors instead of exiting
func initializeConfigFile(out io.Writer, force bool) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	if err := config.CreateSampleConfig(configFs, configPath, force); err != nil {
		return err
	}

	fmt.Fprintf(out, "Sample configuration created at %s\n", configPath)
	return nil
}

// showConfiguration prints the effective configuration
func showConfiguration(out io.Writer) error {
	source := viper.ConfigFileUsed()
	if source == "" {
		source = "none (defaults and environment)"
	}
	fmt.Fprintf(out, "# config file: %s\n", source)

	rendered, err := config.Get().ToYAML()
	if err != nil {
		return err
	}
	_, err = out.Write(rendered)
	return err
}

// validateConfiguration reloads and checks the configuration
func validateConfiguration() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	logging.LogSuccess("Configuration is valid")
	return nil
}

func init() {
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
