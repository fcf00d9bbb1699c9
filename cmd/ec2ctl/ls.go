package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ec2ctl/internal/config"
	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/colors"
	"ec2ctl/pkg/logging"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// listOptions carries the ls arguments and flags
type listOptions struct {
	Name   string
	State  string
	Tags   string
	SSM    bool
	Format string
}

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls [NAME]",
	Short: "List EC2 instances",
	Long: `List EC2 instances whose Name tag contains NAME and whose state contains
STATE, both case-insensitively. Without filters every instance is listed.

The default tsv output prints one instance per line:
  instance-id<TAB>name<TAB>state<TAB>private-ip
Region supports shortcuts: cac1 (ca-central-1), use1 (us-east-1), euw1 (eu-west-1), etc.`,
	Example: `  ec2ctl ls
  ec2ctl ls web -s running
  ec2ctl ls -t Environment=dev,Team=platform -o table
  ec2ctl ls api -s stopped | cut -f1 | ec2ctl start`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := listOptions{}
		if len(args) == 1 {
			opts.Name = args[0]
		}
		opts.State, _ = cmd.Flags().GetString("state")
		opts.Tags, _ = cmd.Flags().GetString("tags")
		opts.SSM, _ = cmd.Flags().GetBool("ssm")
		opts.Format, _ = cmd.Flags().GetString("output")
		if opts.Format == "" {
			opts.Format = config.Get().List.Format
		}

		return performInstanceListing(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

// performInstanceListing fetches, filters and prints instances
func performInstanceListing(ctx context.Context, out io.Writer, opts listOptions) error {
	format := strings.ToLower(opts.Format)
	if !config.IsOutputFormat(format) {
		return fmt.Errorf("unsupported output format %q (use %s)", opts.Format, strings.Join(config.OutputFormats, ", "))
	}

	region, err := resolveRegion()
	if err != nil {
		return err
	}

	pool := newClientPool(resolveProfile())
	service := awspkg.NewInstanceService(pool, GetLogger())

	logging.LogDebug("Fetching instances from region %s", displayRegion(region))
	instances, err := service.ListInstances(ctx, region, &awspkg.ListFilters{
		Name:  opts.Name,
		State: opts.State,
		Tags:  opts.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to list instances: %w", err)
	}

	if opts.SSM {
		service.AttachSSMStatus(ctx, region, instances)
	}

	if len(instances) == 0 {
		logging.LogWarn("No EC2 instances matched in region %s", displayRegion(region))
	}

	return printInstances(out, instances, format, opts.SSM)
}

// printInstances writes instances to out in the requested format
func printInstances(out io.Writer, instances []awspkg.Instance, format string, withSSM bool) error {
	switch format {
	case "json":
		if instances == nil {
			instances = []awspkg.Instance{}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(instances)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(instances); err != nil {
			return fmt.Errorf("failed to encode instances: %w", err)
		}
		return encoder.Close()
	case "table":
		printInstanceTable(out, instances, withSSM)
		return nil
	default:
		for _, instance := range instances {
			fmt.Fprintln(out, formatRecord(instance, withSSM))
		}
		return nil
	}
}

// formatRecord renders one tab-separated ls line. Absent name or IP stay empty.
func formatRecord(instance awspkg.Instance, withSSM bool) string {
	fields := []string{
		instance.ID,
		instance.Name,
		colors.ColorState(instance.State),
		instance.PrivateIP,
	}
	if withSSM {
		fields = append(fields, instance.SSMStatus)
	}
	return strings.Join(fields, "\t")
}

// printInstanceTable prints instances as an aligned table
func printInstanceTable(out io.Writer, instances []awspkg.Instance, withSSM bool) {
	table := NewTable(2)

	ids := make([]string, len(instances))
	names := make([]string, len(instances))
	states := make([]string, len(instances))
	types := make([]string, len(instances))
	privateIPs := make([]string, len(instances))
	publicIPs := make([]string, len(instances))
	ssmStatuses := make([]string, len(instances))

	for i, instance := range instances {
		ids[i] = instance.ID
		names[i] = orNA(instance.Name)
		states[i] = colors.ColorState(instance.State)
		types[i] = instance.InstanceType
		privateIPs[i] = orNA(instance.PrivateIP)
		publicIPs[i] = orNA(instance.PublicIP)
		ssmStatuses[i] = formatSSMStatus(instance.SSMStatus)
	}

	table.AddColumn("Instance ID", ids, 12)
	table.AddColumn("Name", names, 8)
	table.AddColumn("State", states, 8)
	table.AddColumn("Type", types, 6)
	table.AddColumn("Private IP", privateIPs, 10)
	table.AddColumn("Public IP", publicIPs, 10)
	if withSSM {
		table.AddColumn("SSM Status", ssmStatuses, 10)
	}

	colors.FprintHeader(out, "%s\n", table.Header())
	for i := 0; i < table.RowCount(); i++ {
		fmt.Fprintln(out, table.Row(i))
	}
}

func formatSSMStatus(status string) string {
	switch status {
	case "Online":
		return colors.ColorSuccess("Online")
	case "ConnectionLost":
		return colors.ColorWarning("Lost")
	case "", awspkg.SSMStatusNoAgent:
		return colors.ColorError(awspkg.SSMStatusNoAgent)
	default:
		return colors.ColorWarning("%s", status)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func displayRegion(region string) string {
	if region == "" {
		return "(SDK default)"
	}
	return region
}

func init() {
	lsCmd.Flags().StringP("state", "s", "", "Filter by state substring (running, stopped, etc.)")
	lsCmd.Flags().StringP("tags", "t", "", "Filter by tags (format: key1=value1,key2=value2)")
	lsCmd.Flags().Bool("ssm", false, "Include the SSM agent status column")
	lsCmd.Flags().StringP("output", "o", "", "Output format: tsv, table, json or yaml (default from config, tsv)")

	_ = lsCmd.RegisterFlagCompletionFunc("state", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"pending", "running", "stopping", "stopped", "shutting-down", "terminated"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = lsCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(lsCmd)
}
