package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ec2ctl/internal/config"
	"ec2ctl/internal/interactive"
	"ec2ctl/internal/power"
	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/logging"

	"github.com/spf13/cobra"
)

// powerOptions carries the flags shared by start, stop and reboot
type powerOptions struct {
	Parallel int
	Wait     bool
	Timeout  time.Duration
	Quiet    bool
}

// newPowerCommand builds start, stop or reboot
func newPowerCommand(op power.Operation, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [INSTANCE_ID|NAME ...]", op),
		Short: short,
		Long: long + `

Identifiers are read from stdin when it is piped, otherwise from the arguments.
With neither, an interactive picker opens on a terminal.
All requests are issued at once unless --parallel bounds them. One instance
failing never stops the others; a summary follows once all have finished.
The exit status is 1 only when an instance failed with an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := powerOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			return performPowerOperation(cmd.Context(), cmd.ErrOrStderr(), op, args, opts)
		},
	}

	cmd.Flags().IntP("parallel", "p", 0, fmt.Sprintf("Maximum concurrent operations, 1-%d (default from config, 0 for all at once)", config.MaxParallel))
	cmd.Flags().Bool("no-wait", false, "Return once AWS accepted each request instead of waiting for the target state")
	cmd.Flags().Duration("timeout", 0, "How long to wait per instance (default from config, 10m)")
	cmd.Flags().BoolP("quiet", "q", false, "Only print warnings, errors and the summary")

	return cmd
}

var startCmd = newPowerCommand(power.OperationStart,
	"Start stopped EC2 instances",
	"Start each stopped instance and wait until it is running.\nInstances that are not stopped are skipped with a warning.")

var stopCmd = newPowerCommand(power.OperationStop,
	"Stop running EC2 instances",
	"Stop each running instance and wait until it is stopped.\nInstances that are not running are skipped with a warning.")

var rebootCmd = newPowerCommand(power.OperationReboot,
	"Reboot running EC2 instances",
	"Reboot each running instance.\nInstances that are not running are skipped with a warning.")

// powerOptionsFromFlags merges flags over the power section of the config
func powerOptionsFromFlags(cmd *cobra.Command) (powerOptions, error) {
	cfg := config.Get()
	opts := powerOptions{
		Parallel: cfg.Power.Parallel,
		Wait:     cfg.Power.Wait,
		Timeout:  cfg.Power.WaitTimeout,
	}

	if cmd.Flags().Changed("parallel") {
		opts.Parallel, _ = cmd.Flags().GetInt("parallel")
	}
	if noWait, _ := cmd.Flags().GetBool("no-wait"); noWait {
		opts.Wait = false
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	opts.Quiet, _ = cmd.Flags().GetBool("quiet")

	if opts.Parallel < 0 || opts.Parallel > config.MaxParallel {
		return opts, fmt.Errorf("--parallel must be between 0 and %d, got %d", config.MaxParallel, opts.Parallel)
	}
	if opts.Timeout <= 0 {
		return opts, fmt.Errorf("--timeout must be positive, got %v", opts.Timeout)
	}
	return opts, nil
}

// performPowerOperation gathers identifiers, runs the batch and prints the summary
func performPowerOperation(ctx context.Context, errOut io.Writer, op power.Operation, args []string, opts powerOptions) error {
	region, err := resolveRegion()
	if err != nil {
		return err
	}

	pool := newClientPool(resolveProfile())
	instanceService := awspkg.NewInstanceService(pool, GetLogger())

	identifiers, err := collectIdentifiers(args)
	if err != nil {
		return err
	}
	if len(identifiers) == 0 {
		// An empty pipe, e.g. from an ls that matched nothing, is not a failure
		if !isTerminal(stdin) {
			logging.LogWarn("No instance IDs given on stdin or as arguments, nothing to %s", op)
			return nil
		}
		identifiers, err = selectInteractively(ctx, instanceService, region, op)
		if err != nil {
			return err
		}
	}

	ec2Client, err := pool.GetEC2Client(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to get EC2 client for region %s: %w", displayRegion(region), err)
	}

	reporter := power.NewReporter(errOut, opts.Quiet)
	runner := &power.Runner{
		Executor: &power.AWSExecutor{
			Resolver: instanceService,
			Power:    newPowerService(ec2Client, GetLogger()),
			Region:   region,
			Wait:     awspkg.WaitOptions{Wait: opts.Wait, Timeout: opts.Timeout},
		},
		Parallel: opts.Parallel,
		Reporter: reporter,
		Logger:   GetLogger(),
	}

	if !opts.Quiet {
		logging.LogInfo("%s %d instance(s) in %s (parallel: %s)",
			capitalize(op.Progressive()), len(power.Dedupe(identifiers)), displayRegion(region), power.ParallelLabel(opts.Parallel))
	}

	start := time.Now()
	results := runner.Run(ctx, op, identifiers)
	summary := power.Summarize(op, results, opts.Parallel, time.Since(start))
	reporter.Summary(summary)

	return summary.Err()
}

// collectIdentifiers reads piped stdin when it is not a terminal and falls
// back to args when stdin yields nothing
func collectIdentifiers(args []string) ([]string, error) {
	if !isTerminal(stdin) {
		piped, err := parseIdentifiers(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read instance IDs from stdin: %w", err)
		}
		if len(piped) > 0 {
			if len(args) > 0 {
				logging.LogWarn("Reading instance IDs from stdin, ignoring %d argument(s)", len(args))
			}
			return piped, nil
		}
	}
	return args, nil
}

// parseIdentifiers splits input on whitespace. A line printed by ls
// contributes only its instance ID.
func parseIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if id, ok := recordID(line); ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, strings.Fields(line)...)
	}
	return ids, scanner.Err()
}

// recordID returns the instance ID of an ls tsv record: four or five tab
// fields with an instance state third
func recordID(line string) (string, bool) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if len(fields) != 4 && len(fields) != 5 {
		return "", false
	}
	id := strings.TrimSpace(fields[0])
	state := ansiPattern.ReplaceAllString(strings.TrimSpace(fields[2]), "")
	if !strings.HasPrefix(id, "i-") || strings.ContainsAny(id, " ") || !awspkg.IsInstanceState(state) {
		return "", false
	}
	return id, true
}

// selectInteractively offers the instances the operation can act on
func selectInteractively(ctx context.Context, service *awspkg.InstanceService, region string, op power.Operation) ([]string, error) {
	instances, err := service.ListInstances(ctx, region, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	candidates := interactive.SelectableFor(instances, op.RequiredState())
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no %s instances in region %s to %s", op.RequiredState(), displayRegion(region), op)
	}

	selected, err := selector.SelectInstances(candidates, fmt.Sprintf("Select instances to %s", op))
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no instances selected")
	}
	return interactive.IDs(selected), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, rebootCmd)
}
