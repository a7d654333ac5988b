package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/inspect"
	"github.com/nao1215/sitemapper/internal/model"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Show one request and its response",
		Long: `Inspect sends a single request and prints the request as it goes on the
wire, the response status line and headers, and the body. JSON bodies are
pretty-printed; the footer shows the body size, Content-Length, elapsed
time and, for HTML, the page title and link count.

Redirects are not followed, so a 3xx response is shown as is. Cookies and
headers from the configuration file apply to the URL's host.

Examples:
  # Look at a page
  sitemapper inspect https://example.com/

  # POST JSON through Burp
  sitemapper inspect -x 127.0.0.1:8080 --insecure -X POST \
    -H "Content-Type: application/json" --data '{"q":1}' https://example.com/api

  # Machine-readable output
  sitemapper inspect --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectCmd,
	}

	addProxyFlags(cmd)
	cmd.Flags().StringP("method", "X", "GET", "Request method")
	cmd.Flags().StringArrayP("header", "H", nil, "Extra request header \"Name: value\" (repeatable)")
	cmd.Flags().String("data", "", "Request body")
	cmd.Flags().String("cookie", "", "Cookie header value (overrides the configuration file)")
	cmd.Flags().Bool("json", false, "Print the exchange as JSON")
	cmd.Flags().Bool("raw", false, "Print the body as received instead of pretty-printed")
	cmd.Flags().Bool("no-body", false, "Omit the response body")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	target, err := model.NormalizeURL(args[0], nil)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if err := readProxyFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidTimeout)
	}
	// Inspect shows exactly one exchange.
	cfg.RetryCount = 0

	flags := cmd.Flags()
	method, err := flags.GetString("method")
	if err != nil {
		return err
	}
	headerValues, err := flags.GetStringArray("header")
	if err != nil {
		return err
	}
	headers, err := parseHeaders(headerValues)
	if err != nil {
		return err
	}
	body, err := flags.GetString("data")
	if err != nil {
		return err
	}
	cookie, err := flags.GetString("cookie")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	raw, err := flags.GetBool("raw")
	if err != nil {
		return err
	}
	noBody, err := flags.GetBool("no-body")
	if err != nil {
		return err
	}

	site := siteConfig(cfg, target.Host())
	if cookie != "" {
		site.Cookie = cookie
	}

	ctx := cmd.Context()
	addr, stopProxy, err := resolveProxy(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	f, err := newFetcher(cfg, site, addr, logger)
	if err != nil {
		return err
	}

	ex, err := inspect.New(f, inspect.WithLogger(logger)).Do(ctx, inspect.Request{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    body,
	})
	if ex == nil {
		return err
	}

	out := cmd.OutOrStdout()
	var writeErr error
	if asJSON {
		writeErr = inspect.WriteJSON(out, ex)
	} else {
		writeErr = inspect.WriteText(out, ex, inspect.RenderOptions{Raw: raw, HideBody: noBody})
	}
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return nil
}
