package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/fetch-resolver/pkg/resolverrules"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Check a rules file for unknown matchers/appliers and bad arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolverrules.LoadConfigFile(args[0])
			if err != nil {
				return fmt.Errorf("load rules %s failed: %w", args[0], err)
			}
			warnings, err := resolverrules.ValidateConfig(cfg)
			for _, w := range warnings {
				fmt.Fprintf(root.stderr, "warning: %s\n", w)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(root.stdout, "ok: %d rules (+ fallback json grab=%q)\n", len(cfg.Rules), cfg.Grab)
			return err
		},
	}
}
