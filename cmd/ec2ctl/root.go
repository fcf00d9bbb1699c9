package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ec2ctl/internal/config"
	"ec2ctl/internal/interactive"
	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// skipConfigLoad marks commands that must run even when the config is invalid
const skipConfigLoad = "skipConfigLoad"

var (
	// Version can be set at build time with -ldflags "-X main.Version=X.Y.Z"
	Version = "1.0.0"

	configFile  string
	debug       bool
	regionFlag  string
	profileFlag string
	logger      *logging.Logger

	// newClientPool builds the AWS client pool for a profile
	newClientPool = func(profile string) awspkg.ClientPoolInterface {
		return awspkg.NewClientPool(profile)
	}

	// newPowerService binds the power service to a regional EC2 client
	newPowerService = awspkg.NewPowerService

	// stdin supplies piped instance identifiers
	stdin io.Reader = os.Stdin

	// isTerminal reports whether r is an interactive terminal
	isTerminal = func(r io.Reader) bool {
		f, ok := r.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}

	// selector picks instances when none were given on a terminal
	selector interactive.InstanceSelector = &interactive.FuzzyInstanceSelector{}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ec2ctl",
	Short: "List, start and stop EC2 instances",
	Long: `ec2ctl lists EC2 instances filtered by name and state, and starts, stops
or reboots many instances at once, reporting each instance as it changes state.

Instance records from 'ec2ctl ls' go to stdout so they can be piped:
  ec2ctl ls web -s stopped | ec2ctl start
Progress, warnings and summaries go to stderr.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupConfiguration(cmd)
	},
}

// Execute adds all child commands to the root command and runs it.
// SIGINT and SIGTERM cancel in-flight AWS calls.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.LogError("%v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVarP(&regionFlag, "region", "r", "", "AWS region or shortcode (cac1, use1, euw1, etc.) - default from config or SDK")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "AWS shared config profile - default from config or SDK")

	_ = rootCmd.RegisterFlagCompletionFunc("region", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return awspkg.RegionCompletions(), cobra.ShellCompDirectiveNoFileComp
	})
}

// setupConfiguration loads the config file and environment, then applies the
// logging settings. It returns errors instead of exiting so tests can drive it.
func setupConfiguration(cmd *cobra.Command) error {
	logger = logging.NewLogger(debug)
	if debug {
		logging.SetConsoleLevel(logging.DebugLevel)
	}

	tolerant := cmd.Annotations[skipConfigLoad] == "true"

	err := config.Init(configFile)
	if err == nil {
		err = config.Load()
	}
	if err != nil {
		if tolerant {
			logging.LogDebug("Continuing without a valid configuration: %v", err)
			return nil
		}
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := config.Get()
	if !debug {
		logging.SetConsoleLevel(logging.ParseLevel(cfg.Logging.Level))
	}

	if cfg.Logging.FileLogging {
		dir, err := logging.ResolveLogDir(cfg.Logging.Directory)
		if err == nil {
			err = logging.EnableFileLogging(dir)
		}
		if err != nil {
			logging.LogWarn("File logging disabled: %v", err)
		}
	}

	return nil
}

// resolveRegion turns the --region flag or the configured default into a
// full region code. Empty means the SDK resolves it.
func resolveRegion() (string, error) {
	input := regionFlag
	if input == "" {
		input = config.Get().DefaultRegion
	}
	return awspkg.ValidateRegionInput(input)
}

// resolveProfile prefers --profile over the configured profile
func resolveProfile() string {
	if profileFlag != "" {
		return profileFlag
	}
	return config.Get().Profile
}

// GetLogger returns the command logger
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewLogger(debug)
	}
	return logger
}
