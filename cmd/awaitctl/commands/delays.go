package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aponysus/await/controlplane"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

func newDelaysCommand(root *rootOptions) *cobra.Command {
	var (
		name     string
		minDelay time.Duration
		maxDelay time.Duration
		maxWait  time.Duration
		callTime time.Duration
		jitter   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "delays",
		Short: "Preview the delay schedule of a waiter",
		Long: `Print the sequence of delays a waiter would sleep between attempts
if no acceptor ever reached a terminal state.

Delay bounds come from --waiter (resolved from --spec) or from --min/--max.
Each attempt is assumed to take --call-time.`,
		Example: `  # Worst-case schedule of a named waiter
  awaitctl delays --spec ./waiters --waiter dynamodb.TableExists --max-wait 10m --jitter max

  # Ad-hoc bounds
  awaitctl delays --min 2s --max 2m --max-wait 5m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name != "" {
				spec, err := lookupSpec(cmd, root, name)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("min") {
					minDelay = spec.MinDelay
				}
				if !cmd.Flags().Changed("max") {
					maxDelay = spec.MaxDelay
				}
			}

			jitterFn, err := jitterFunc(jitter)
			if err != nil {
				return err
			}
			exec := waiter.NewExecutor(waiter.WithJitter(jitterFn))

			if maxWait <= 0 {
				return fmt.Errorf("--max-wait must be greater than zero")
			}
			if minDelay > maxDelay {
				return fmt.Errorf("--min %v must not exceed --max %v", minDelay, maxDelay)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTEMPT\tDELAY\tELAPSED\tREMAINING")

			remaining := maxWait
			elapsed := time.Duration(0)
			for attempt := int64(1); attempt <= int64(limit); attempt++ {
				remaining -= callTime
				elapsed += callTime
				if remaining < minDelay || remaining <= 0 {
					break
				}
				delay, err := exec.ComputeDelay(attempt, minDelay, maxDelay, remaining)
				if err != nil {
					return err
				}
				remaining -= delay
				elapsed += delay
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", attempt, delay, elapsed, remaining)
				if delay == 0 && callTime == 0 {
					break
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&name, "waiter", "w", "", "waiter key, e.g. dynamodb.TableExists")
	cmd.Flags().DurationVar(&minDelay, "min", policy.DefaultMinDelay, "minimum delay")
	cmd.Flags().DurationVar(&maxDelay, "max", policy.DefaultMaxDelay, "maximum delay")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 10*time.Minute, "total wait budget")
	cmd.Flags().DurationVar(&callTime, "call-time", 0, "assumed duration of each attempt")
	cmd.Flags().StringVar(&jitter, "jitter", "random", "jitter: random, none (always min) or max (upper bound)")
	cmd.Flags().IntVar(&limit, "attempts", 100, "maximum number of attempts to print")

	return cmd
}

func jitterFunc(mode string) (func(int64) int64, error) {
	switch mode {
	case "random":
		return nil, nil
	case "none":
		return func(int64) int64 { return 0 }, nil
	case "max":
		return func(n int64) int64 { return n - 1 }, nil
	default:
		return nil, fmt.Errorf("invalid --jitter %q (want random, none or max)", mode)
	}
}

func lookupSpec(cmd *cobra.Command, root *rootOptions, name string) (policy.WaiterSpec, error) {
	if len(root.specPaths) == 0 {
		return policy.WaiterSpec{}, errNoSpecPaths
	}
	src, err := controlplane.NewFileSource(root.specPaths, controlplane.WithLogger(log.Logger))
	if err != nil {
		return policy.WaiterSpec{}, err
	}
	return waiter.NewExecutor(waiter.WithProvider(src)).Spec(cmd.Context(), policy.ParseKey(name))
}
