package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"ec2ctl/internal/config"
	"ec2ctl/internal/testutil"
	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// harness wires the command tree to in-memory AWS fakes
type harness struct {
	t       *testing.T
	EC2     *testutil.FakeEC2
	SSM     *testutil.FakeSSM
	STS     *testutil.FakeSTS
	Regions []string

	stdin    io.Reader
	terminal bool
}

func newHarness(t *testing.T, instances ...testutil.FakeInstance) *harness {
	t.Helper()
	testutil.SetupAWSTestEnvironment(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	h := &harness{
		t:        t,
		EC2:      testutil.NewFakeEC2(instances...),
		SSM:      &testutil.FakeSSM{},
		STS:      &testutil.FakeSTS{Account: "123456789012", Arn: "arn:aws:iam::123456789012:user/ops", UserID: "AIDAEXAMPLE"},
		stdin:    strings.NewReader(""),
		terminal: true,
	}

	origPool, origPower, origStdin, origTerminal, origSelector := newClientPool, newPowerService, stdin, isTerminal, selector
	origNoColor := color.NoColor
	color.NoColor = true

	newClientPool = func(profile string) awspkg.ClientPoolInterface {
		return awspkg.NewClientPoolWithFactory(profile, func(ctx context.Context, opts awspkg.ClientOptions) (*awspkg.Client, error) {
			h.Regions = append(h.Regions, opts.Region)
			return &awspkg.Client{
				Config: aws.Config{Region: opts.Region},
				EC2:    h.EC2,
				SSM:    h.SSM,
				STS:    h.STS,
			}, nil
		})
	}
	newPowerService = func(ec2Client awspkg.EC2API, logger *logging.Logger) *awspkg.PowerService {
		service := awspkg.NewPowerService(ec2Client, logger)
		service.SetWaiterDelays(time.Millisecond, 2*time.Millisecond)
		return service
	}
	isTerminal = func(io.Reader) bool { return h.terminal }

	t.Cleanup(func() {
		newClientPool, newPowerService, stdin, isTerminal, selector = origPool, origPower, origStdin, origTerminal, origSelector
		color.NoColor = origNoColor
		logging.SetOutput(os.Stderr)
		logging.SetConsoleLevel(logging.InfoLevel)
		config.Reset()
		resetFlags(rootCmd)
	})

	return h
}

// pipe makes stdin a non-terminal holding input
func (h *harness) pipe(input string) {
	h.stdin = strings.NewReader(input)
	h.terminal = false
}

// run executes the root command and returns stdout and stderr
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	config.Reset()
	resetFlags(rootCmd)

	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	logging.SetOutput(stderr)
	stdin = h.stdin

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func noColor(t *testing.T) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
}
