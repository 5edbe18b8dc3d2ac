package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/fetch-resolver/pkg/dotted"
	"github.com/r9s-ai/fetch-resolver/pkg/resolverrules"
)

// responseFixture is a recorded response. Body may be a string or any
// YAML/JSON value, which is encoded as JSON text.
type responseFixture struct {
	Status     int               `yaml:"status"`
	StatusText string            `yaml:"status_text"`
	Headers    map[string]string `yaml:"headers"`
	Body       any               `yaml:"body"`
}

func loadResponseFixture(path string) (*resolverrules.StaticResponse, error) {
	// #nosec G304 -- path is provided by trusted flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx responseFixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("parse response fixture: %w", err)
	}
	if fx.Status == 0 {
		fx.Status = http.StatusOK
	}
	if fx.Status < 100 || fx.Status > 999 {
		return nil, fmt.Errorf("invalid status %d in response fixture", fx.Status)
	}
	res := &resolverrules.StaticResponse{
		Code:   fx.Status,
		Reason: fx.StatusText,
		Body:   dotted.FormatScalar(fx.Body),
	}
	if len(fx.Headers) > 0 {
		res.Header = make(http.Header, len(fx.Headers))
		for k, v := range fx.Headers {
			res.Header.Set(k, v)
		}
	}
	return res, nil
}

var errNoResponse = errors.New("missing --response fixture")

type applyOptions struct {
	ruleFlags

	responsePath string
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply rules to a recorded response fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.responsePath, "response", "", "response fixture (yaml/json: status, status_text, headers, body)")
	opts.register(cmd)
	return cmd
}

func runApply(cmd *cobra.Command, root *rootOptions, opts applyOptions) error {
	if strings.TrimSpace(opts.responsePath) == "" {
		return errNoResponse
	}
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	rules, err := opts.rules(cmd, cfg, log)
	if err != nil {
		return err
	}
	res, err := loadResponseFixture(opts.responsePath)
	if err != nil {
		return fmt.Errorf("load response %s failed: %w", opts.responsePath, err)
	}
	rule, idx := resolverrules.SelectRule(rules, res)
	log.Debugf("rule selected: index=%d match=%q apply=%q", idx, rule.Match.Kind(), rule.Apply.Kind())

	out, err := resolverrules.ApplyRule(cmd.Context(), rules, rule, res)
	if err != nil {
		return err
	}
	return printResult(root.stdout, out, opts.raw)
}
