package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aponysus/await/controlplane"
	"github.com/aponysus/await/policy"
)

var errNoSpecPaths = errors.New("no spec paths given (use --spec, arguments or " + envSpecPath + ")")

func newValidateCommand(root *rootOptions) *cobra.Command {
	var (
		dump  bool
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Validate waiter spec documents",
		Long: `Load and validate waiter spec documents.

Every document is decoded, checked against the document schema and
normalized. Waiter names must be unique across all files.`,
		Example: `  # Validate a directory of specs
  awaitctl validate ./waiters

  # Print the normalized specs as YAML
  awaitctl validate --dump ./waiters/tables.cue

  # Keep validating as files change
  awaitctl validate --watch ./waiters`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = root.specPaths
			}
			if len(paths) == 0 {
				return errNoSpecPaths
			}

			src, err := controlplane.NewFileSource(paths, controlplane.WithLogger(log.Logger))
			if err != nil {
				return err
			}
			if err := report(cmd, src.Specs(), dump); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx := cmd.Context()
			err = src.Watch(ctx, func(err error) {
				if err != nil {
					log.Error().Err(err).Msg("spec reload failed")
					return
				}
				if rerr := report(cmd, src.Specs(), dump); rerr != nil {
					log.Error().Err(rerr).Msg("spec report failed")
				}
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print the normalized specs as YAML")
	cmd.Flags().BoolVar(&watch, "watch", false, "revalidate whenever a spec file changes")

	return cmd
}

func report(cmd *cobra.Command, specs []policy.WaiterSpec, dump bool) error {
	out := cmd.OutOrStdout()
	if dump {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(policy.ToDocument(specs...)); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, s := range specs {
		fmt.Fprintf(out, "ok  %s  acceptors=%d  delays=%s..%s  %s\n",
			s.Key, len(s.Acceptors), s.MinDelay, s.MaxDelay, s.Meta.Origin)
	}
	fmt.Fprintf(out, "%d waiter(s) valid\n", len(specs))
	return nil
}
