package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/fetch-resolver/pkg/fetchresolver"
)

type fetchOptions struct {
	ruleFlags

	method  string
	headers []string
	data    string
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	opts := fetchOptions{method: "GET"}
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send a request and print the resolved result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, root, opts, args[0])
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.method, "method", "X", "GET", "request method")
	fs.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Key: Value" (repeatable)`)
	fs.StringVarP(&opts.data, "data", "d", "", "request body")
	opts.register(cmd)
	return cmd
}

func runFetch(cmd *cobra.Command, root *rootOptions, opts fetchOptions, rawURL string) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	rules, err := opts.rules(cmd, cfg, log)
	if err != nil {
		return err
	}

	header := cfg.Header()
	for _, h := range opts.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("invalid header %q: want \"Key: Value\"", h)
		}
		header.Set(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	client := &fetchresolver.Client{
		HTTPClient: cfg.HTTPClient(),
		Header:     header,
		UserAgent:  cfg.HTTP.UserAgent,
		OnTrace: func(tr fetchresolver.Trace) {
			rule := fmt.Sprintf("%d", tr.Rule)
			if tr.Rule == len(rules.Rules) {
				rule = "fallback"
			}
			log.Fetch(tr.Status, tr.Latency, tr.Method, tr.URL, map[string]any{
				"rule":  rule,
				"apply": tr.Apply,
			}, tr.Err)
		},
	}

	var body io.Reader
	if opts.data != "" {
		body = strings.NewReader(opts.data)
	}
	out, err := client.Do(cmd.Context(), opts.method, rawURL, body, rules)
	if err != nil {
		return err
	}
	return printResult(root.stdout, out, opts.raw)
}
