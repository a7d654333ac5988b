package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/database"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/report"
	"github.com/nao1215/sitemapper/internal/sitemap"
)

// NewDataCmd creates the data command and its subcommands.
func NewDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the crawl store",
		Long: `Data lists, shows, deletes and exports the per-URL records that crawls
persist in the local store, and lists past runs.

The store lives in the XDG data directory (~/.local/share/sitemapper on
Linux) unless --data-dir is given.`,
	}

	cmd.AddCommand(newDataListCmd())
	cmd.AddCommand(newDataShowCmd())
	cmd.AddCommand(newDataDeleteCmd())
	cmd.AddCommand(newDataExportCmd())
	cmd.AddCommand(newDataRunsCmd())

	return cmd
}

// addFilterFlags registers the record filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("prefix", "", "Only records whose URL starts with this prefix")
	cmd.Flags().String("run", "", "Only records of this run ID")
	cmd.Flags().StringSlice("state", nil, "Only records in these states (queued, fetched, failed, external, redirected)")
	cmd.Flags().String("ext", "", "Only URLs with this file extension, e.g. pdf")
}

// readFilterFlags builds a record filter from the filter flags.
func readFilterFlags(cmd *cobra.Command) (database.RecordFilter, error) {
	var (
		filter database.RecordFilter
		err    error
	)
	if filter.Prefix, err = cmd.Flags().GetString("prefix"); err != nil {
		return filter, err
	}
	if filter.RunID, err = cmd.Flags().GetString("run"); err != nil {
		return filter, err
	}
	if filter.Extension, err = cmd.Flags().GetString("ext"); err != nil {
		return filter, err
	}
	states, err := cmd.Flags().GetStringSlice("state")
	if err != nil {
		return filter, err
	}
	for _, s := range states {
		state := model.RecordState(strings.ToLower(strings.TrimSpace(s)))
		switch state {
		case model.RecordQueued, model.RecordFetched, model.RecordFailed, model.RecordExternal,
			model.RecordRedirected:
			filter.States = append(filter.States, state)
		default:
			return filter, fmt.Errorf("unknown record state %q", s)
		}
	}
	return filter, nil
}

func newDataListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Long: `List prints the stored records in URL order.

Examples:
  # Everything under one host
  sitemapper data list --prefix https://example.com/

  # Failed PDFs of the last crawl
  sitemapper data list --state failed --ext pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := readFilterFlags(cmd)
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}

			db, err := openStore(dataDir(cmd), false)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.ListRecords(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), records, asJSON)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("json", false, "Print records as JSON")
	return cmd
}

// printRecords writes records as a table or as a JSON array.
func printRecords(w io.Writer, records []*model.Record, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}
	fmt.Fprintf(w, "  %-8s  %-6s  %s\n", "STATE", "STATUS", "URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 60))
	for _, rec := range records {
		status := "-"
		if rec.StatusCode > 0 {
			status = fmt.Sprintf("%d", rec.StatusCode)
		}
		fmt.Fprintf(w, "  %-8s  %-6s  %s\n", rec.State, status, rec.URL)
	}
	fmt.Fprintf(w, "\n%s records\n", humanize.Comma(int64(len(records))))
	return nil
}

func newDataShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <url>",
		Short: "Show the stored record of one URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := model.NormalizeURL(args[0], nil)
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}

			db, err := openStore(dataDir(cmd), false)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.GetRecord(cmd.Context(), u)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("no record for %s: %w", u, err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(out, rec)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the record as JSON")
	return cmd
}

// printRecord writes one record as "key: value" lines.
func printRecord(w io.Writer, rec *model.Record) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-13s %s\n", name+":", value)
		}
	}
	field("URL", rec.URL)
	if u, err := model.NormalizeURL(rec.URL, nil); err == nil {
		field("Parameters", strings.Join(u.Parameters(), ", "))
	}
	field("State", string(rec.State))
	field("Run", rec.RunID)
	field("Depth", fmt.Sprintf("%d", rec.Depth))
	if rec.StatusCode > 0 {
		field("Status", fmt.Sprintf("%d", rec.StatusCode))
	}
	field("Content-Type", rec.ContentType)
	field("Title", rec.Title)
	if rec.BodySize > 0 {
		field("Body", humanize.Bytes(uint64(rec.BodySize))) //nolint:gosec // body size is non-negative
	}
	field("Body SHA-256", rec.BodyHash)
	if rec.ErrorKind != model.ErrorKindNone {
		field("Error", report.ErrorKindLabel(rec.ErrorKind)+": "+rec.Message)
	}
	if rec.Attempts > 0 {
		field("Attempts", fmt.Sprintf("%d", rec.Attempts))
	}
	if rec.ElapsedMS > 0 {
		field("Elapsed", fmt.Sprintf("%d ms", rec.ElapsedMS))
	}
	if !rec.Timestamp.IsZero() {
		field("Recorded", rec.Timestamp.Format(time.RFC3339)+" ("+humanize.Time(rec.Timestamp)+")")
	}
}

func newDataDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [url]",
		Short: "Delete stored records",
		Long: `Delete removes the record of one URL, a whole host or path subtree with
--prefix, or everything with --all.

Examples:
  # Forget one URL
  sitemapper data delete https://example.com/old

  # Forget /docs and everything below it
  sitemapper data delete --prefix https://example.com/docs

  # Start over
  sitemapper data delete --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDataDeleteCmd,
	}
	cmd.Flags().String("prefix", "", "Delete this URL and everything below it")
	cmd.Flags().Bool("all", false, "Delete every record and run")
	return cmd
}

// runDataDeleteCmd executes the data delete command.
func runDataDeleteCmd(cmd *cobra.Command, args []string) error {
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	selected := 0
	for _, set := range []bool{len(args) == 1, prefix != "", all} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		return errors.New("specify exactly one of a URL, --prefix or --all")
	}

	db, err := openStore(dataDir(cmd), false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	switch {
	case all:
		records, err := db.DeleteAll(ctx)
		if err != nil {
			return err
		}
		runs, err := db.DeleteRuns(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d records and %d runs\n", records, runs)
	case prefix != "":
		root, err := model.NormalizeURL(prefix, nil)
		if err != nil {
			return err
		}
		n, err := db.DeleteSubtree(ctx, root)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d records under %s\n", n, root)
	default:
		u, err := model.NormalizeURL(args[0], nil)
		if err != nil {
			return err
		}
		if err := db.Delete(ctx, u.Key()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %s\n", u)
	}
	return nil
}

func newDataExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored URLs to a sitemap",
		Long: `Export writes the stored URLs that belong in a sitemap (fetched URLs and,
unless --external=false, external ones) to a file or stdout, in URL order.

Examples:
  # Sitemap of everything ever crawled on one host
  sitemapper data export --prefix https://example.com/ -o example.txt

  # Sitemap of one run, internal URLs only
  sitemapper data export --run 3f2a... --external=false`,
		Args: cobra.NoArgs,
		RunE: runDataExportCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Sitemap file path (default: stdout)")
	cmd.Flags().Bool("external", true, "Include URLs outside the crawl scope")
	return cmd
}

// runDataExportCmd executes the data export command.
func runDataExportCmd(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	filter, err := readFilterFlags(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	external, err := cmd.Flags().GetBool("external")
	if err != nil {
		return err
	}

	db, err := openStore(dataDir(cmd), false)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListRecords(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	selected := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		if rec.InSitemap(external) {
			selected = append(selected, rec)
		}
	}
	urls := recordURLs(selected, logger)

	if output == "" || output == "-" {
		return sitemap.Write(cmd.OutOrStdout(), urls)
	}
	if err := sitemap.WriteFile(output, urls); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d URLs to %s\n", len(urls), output)
	return nil
}

func newDataRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}

			db, err := openStore(dataDir(cmd), false)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			return printRuns(cmd.OutOrStdout(), runs, asJSON)
		},
	}
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Bool("json", false, "Print runs as JSON")
	return cmd
}

// printRuns writes run summaries, newest first.
func printRuns(w io.Writer, runs []*model.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		fmt.Fprintln(w, "\nUse 'sitemapper crawl <seed-url>' to start one.")
		return nil
	}

	fmt.Fprintf(w, "  %-36s  %-10s  %-16s  %7s  %6s  %s\n", "ID", "STATUS", "STARTED", "FETCHED", "ERRORS", "SEED")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(w, "  %-36s  %-10s  %-16s  %7d  %6d  %s\n",
			run.ID,
			run.Status.String(),
			humanize.Time(run.StartedAt),
			run.Stats.Fetched,
			run.Stats.TotalErrors(),
			run.Seed,
		)
	}
	fmt.Fprintln(w, "\nUse 'sitemapper data export --run <id>' to write the sitemap of a run.")
	return nil
}
