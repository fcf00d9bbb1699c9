package main

import (
	"context"
	"fmt"
	"io"

	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/colors"

	"github.com/spf13/cobra"
)

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the AWS identity and region in use",
	Long: `Resolve the caller identity through STS with the same region and profile
the other commands would use. Useful to check credentials before a bulk operation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showIdentity(cmd.Context(), cmd.OutOrStdout())
	},
}

// showIdentity prints the caller identity
func showIdentity(ctx context.Context, out io.Writer) error {
	region, err := resolveRegion()
	if err != nil {
		return err
	}

	client, err := newClientPool(resolveProfile()).GetClient(ctx, region)
	if err != nil {
		return err
	}

	identity, err := client.GetCallerIdentity(ctx)
	if err != nil {
		return err
	}

	profile := resolveProfile()
	if profile == "" {
		profile = "(default chain)"
	}

	colors.FprintHeader(out, "AWS identity\n")
	fmt.Fprintf(out, "  Account:  %s\n", identity.Account)
	fmt.Fprintf(out, "  ARN:      %s\n", identity.Arn)
	fmt.Fprintf(out, "  User ID:  %s\n", identity.UserID)
	fmt.Fprintf(out, "  Region:   %s\n", describeRegion(identity.Region))
	fmt.Fprintf(out, "  Profile:  %s\n", profile)
	return nil
}

// describeRegion appends the region's location when it is a known region
func describeRegion(region string) string {
	if region == "" {
		return displayRegion(region)
	}
	if desc := awspkg.GetRegionDescription(region); desc != "Unknown Region" {
		return fmt.Sprintf("%s - %s", region, desc)
	}
	return region
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
