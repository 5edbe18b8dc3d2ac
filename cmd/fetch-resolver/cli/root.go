package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/fetch-resolver/internal/config"
	"github.com/r9s-ai/fetch-resolver/internal/logx"
	"github.com/r9s-ai/fetch-resolver/internal/version"
	"github.com/r9s-ai/fetch-resolver/pkg/resolverrules"
)

type rootOptions struct {
	cfgPath string
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCmd builds the fetch-resolver command tree writing to stdout/stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "fetch-resolver",
		Short:         "Fetch HTTP responses and resolve them with match/apply rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "fetch-resolver.yaml", "config yaml path (optional)")

	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newApplyCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(opts.stdout, version.Get().String())
			return err
		},
	})
	return cmd
}

func (o *rootOptions) load() (*config.Config, *logx.Logger, error) {
	cfg, err := config.LoadIfExists(strings.TrimSpace(o.cfgPath))
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s failed: %w", o.cfgPath, err)
	}
	level, _ := logx.ParseLevel(cfg.Logging.Level)
	var color bool
	if f, ok := o.stderr.(*os.File); ok {
		color = logx.ResolveColor(cfg.Logging.Color, f)
	} else {
		color = strings.EqualFold(strings.TrimSpace(cfg.Logging.Color), "always")
	}
	return cfg, &logx.Logger{W: o.stderr, Level: level, Color: color}, nil
}

// ruleFlags are shared by fetch and apply.
type ruleFlags struct {
	rulesPath string
	grab      string
	shape     string
	raw       bool
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.rulesPath, "rules", "r", "", "rules file (yaml or json), defaults to rules.file in config")
	fs.StringVar(&f.grab, "grab", "", "dotted path for the fallback json rule (overrides the rules file)")
	fs.StringVar(&f.shape, "shape", "", "JSON template for the fallback json rule (overrides the rules file)")
	fs.BoolVar(&f.raw, "raw", false, "print string results without JSON quoting")
}

func (f *ruleFlags) rules(cmd *cobra.Command, cfg *config.Config, log *logx.Logger) (*resolverrules.Config, error) {
	path := strings.TrimSpace(f.rulesPath)
	if path == "" {
		path = strings.TrimSpace(cfg.Rules.File)
	}
	rc := &resolverrules.Config{}
	if path != "" {
		loaded, err := resolverrules.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load rules %s failed: %w", path, err)
		}
		warnings, err := resolverrules.ValidateConfig(loaded)
		for _, w := range warnings {
			log.Infof("warning: %s", w)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid rules %s: %w", path, err)
		}
		log.Debugf("rules loaded: file=%s rules=%d grab=%q", path, len(loaded.Rules), loaded.Grab)
		rc = loaded
	}
	if cmd.Flags().Changed("grab") {
		rc.Grab = f.grab
	}
	if cmd.Flags().Changed("shape") {
		var shape any
		if err := json.Unmarshal([]byte(f.shape), &shape); err != nil {
			return nil, fmt.Errorf("invalid --shape: %w", err)
		}
		rc.Shape = shape
	}
	return rc, nil
}

func printResult(w io.Writer, v any, raw bool) error {
	if s, ok := v.(string); ok && raw {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
