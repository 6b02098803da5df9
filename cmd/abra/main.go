package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/coboxhq/abra/pkg/abra"
	"github.com/coboxhq/abra/pkg/config"
	"github.com/coboxhq/abra/pkg/identity"
	"github.com/coboxhq/abra/pkg/ingest"
	"github.com/coboxhq/abra/pkg/metrics"
)

var (
	configPath  string
	dbPath      string
	scope       string
	verbose     bool
	metricsAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "abra",
		Short: "Personal memory store with a governed PII boundary",
		Long: `abra keeps bindings (typed facts about named subjects), content blobs,
and a hierarchical catcode namespace in a local SQLite database. Contact
PII never lands locally; it is routed to the configured CRM sink.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&scope, "scope", "", "binding scope (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(writeCmd())
	rootCmd.AddCommand(catcodeCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(queryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openAbra() (*abra.Abra, error) {
	cfg, err := abra.FromFile(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if scope != "" {
		cfg.Scope = scope
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if metricsAddr != "" {
		collector := metrics.NewCollector()
		cfg.Metrics = collector
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				cfg.Logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	return abra.New(cfg)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and report its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.GetStore().Count()
			if err != nil {
				return err
			}
			fmt.Printf("Database ready.\n")
			fmt.Printf("  catcodes: %d\n", counts.Catcodes)
			fmt.Printf("  content:  %d\n", counts.Content)
			fmt.Printf("  bindings: %d\n", counts.Bindings)
			return nil
		},
	}
}

func writeCmd() *cobra.Command {
	var qualifier, permanence, sourceDate, code string

	cmd := &cobra.Command{
		Use:   "write NAME RELATIONSHIP TARGET_TYPE TARGET_REF",
		Short: "Write one binding (runs the PII guard)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.GetStore().WriteBinding(cmd.Context(), abra.Binding{
				Scope:        a.Scope(),
				Name:         args[0],
				Relationship: strings.ToUpper(args[1]),
				TargetType:   args[2],
				TargetRef:    args[3],
				Qualifier:    qualifier,
				Permanence:   strings.ToUpper(permanence),
				SourceDate:   sourceDate,
				Catcode:      code,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", abra.ClassifyError(err), err)
			}
			fmt.Printf("Wrote binding %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&qualifier, "qualifier", "", "free-text qualifier")
	cmd.Flags().StringVar(&permanence, "permanence", "", "INTRINSIC, CURRENT or EPHEMERAL (default CURRENT)")
	cmd.Flags().StringVar(&sourceDate, "date", "", "source date, YYYY-MM-DD")
	cmd.Flags().StringVar(&code, "catcode", "", "classification code")
	return cmd
}

func catcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catcode",
		Short: "Manage the classification namespace",
	}
	cmd.AddCommand(catcodeRegisterCmd())
	cmd.AddCommand(catcodeListCmd())
	cmd.AddCommand(catcodeNextCmd())
	cmd.AddCommand(catcodeAllocCmd())
	cmd.AddCommand(catcodeDeleteCmd())
	return cmd
}

func catcodeRegisterCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "register CODE LABEL",
		Short: "Register a catcode (idempotent; re-register relabels)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.GetStore().RegisterCatcode(cmd.Context(), args[0], parent, args[1]); err != nil {
				return err
			}
			fmt.Printf("Registered %s (%s)\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent catcode (empty for a root)")
	return cmd
}

func catcodeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [PREFIX]",
		Short: "List registered catcodes, optionally under a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			entries, err := a.GetStore().FindCatcodes(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No catcodes registered.")
				return nil
			}
			for _, e := range entries {
				indent := strings.Repeat("  ", len(e.Catcode)/2-1)
				fmt.Printf("%s%s  %s\n", indent, e.Catcode, e.Label)
			}
			return nil
		},
	}
}

func catcodeNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next PARENT",
		Short: "Show the next free slot under a parent without claiming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			code, err := a.GetStore().NextCatcode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		},
	}
}

func catcodeAllocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alloc PARENT LABEL",
		Short: "Claim the next free slot under a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			code, err := a.GetStore().AllocateCatcode(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Allocated %s (%s)\n", code, args[1])
			return nil
		},
	}
}

func catcodeDeleteCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "delete CODE",
		Short: "Delete a catcode subtree and everything filed under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			entries, err := a.GetStore().FindCatcodes(ctx, args[0])
			if err != nil {
				return err
			}
			content, err := a.GetStore().ContentByCatcode(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Subtree %s: %d catcodes, %d content blobs (plus their bindings).\n",
				args[0], len(entries), len(content))

			if !confirm {
				fmt.Println("Dry run. Re-run with --confirm to delete.")
				return nil
			}
			if err := a.GetStore().DeleteCatcode(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually delete")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run the ingestion pipelines",
	}
	cmd.AddCommand(importBindingsCmd())
	cmd.AddCommand(importContactsCmd())
	cmd.AddCommand(importIdentitiesCmd())
	return cmd
}

func importBindingsCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "bindings FILE",
		Short: "Import a staging file of content blobs and bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := ingest.LoadStaging(f)
			if err != nil {
				return err
			}

			bindings := 0
			for _, e := range entries {
				bindings += len(e.Bindings)
			}
			fmt.Printf("Staging file: %d entries, %d bindings.\n", len(entries), bindings)

			if !confirm {
				fmt.Println("Dry run. Re-run with --confirm to import.")
				return nil
			}

			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.GetImporter().ImportStaging(cmd.Context(), entries)
			printReport(report)
			return err
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually import")
	return cmd
}

func importContactsCmd() *cobra.Command {
	var (
		confirm bool
		replace bool
		code    string
		parent  string
		label   string
		name    string
		date    string
	)

	cmd := &cobra.Command{
		Use:   "contacts FILE...",
		Short: "Store scrubbed contact lists as chunked content blobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := parseContactFiles(args)
			if err != nil {
				return err
			}

			lines := make([]string, 0, len(rows))
			for _, r := range rows {
				lines = append(lines, r.ScrubbedLine())
			}
			fmt.Printf("Parsed %d contacts from %d file(s).\n", len(lines), len(args))

			if !confirm {
				fmt.Println("Dry run. Re-run with --confirm to import.")
				return nil
			}

			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.GetImporter().ImportContactBlobs(cmd.Context(), lines, ingest.ContactBlobOptions{
				Scope:         a.Scope(),
				Catcode:       code,
				ParentCatcode: parent,
				Label:         label,
				BindingName:   name,
				NoteDate:      date,
				Replace:       replace,
			})
			printReport(report)
			return err
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually import")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete prior chunks and bindings first")
	cmd.Flags().StringVar(&code, "catcode", "", "catcode for the contact blobs")
	cmd.Flags().StringVar(&parent, "parent", "", "parent catcode to register under")
	cmd.Flags().StringVar(&label, "label", "contacts", "catcode label")
	cmd.Flags().StringVar(&name, "name", "contacts-list", "subject name for the list bindings")
	cmd.Flags().StringVar(&date, "date", "", "note date, YYYY-MM-DD")
	cmd.MarkFlagRequired("catcode")
	return cmd
}

func importIdentitiesCmd() *cobra.Command {
	var (
		confirm bool
		code    string
	)

	cmd := &cobra.Command{
		Use:   "identities FILE...",
		Short: "Deduplicate contact exports and push them to the CRM sink",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := parseContactFiles(args)
			if err != nil {
				return err
			}

			raw := make([]identity.Contact, 0, len(rows))
			for _, r := range rows {
				raw = append(raw, r.Contact())
			}
			canonical := identity.Dedup(raw)
			fmt.Printf("Parsed %d records, %d after deduplication.\n", len(raw), len(canonical))

			if !confirm {
				fmt.Println("Dry run. Re-run with --confirm to import.")
				return nil
			}

			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.GetImporter().ImportIdentities(cmd.Context(), canonical, a.GetSink(), ingest.IdentityImportOptions{
				Scope:   a.Scope(),
				Catcode: code,
			})
			printReport(report)
			return err
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually import")
	cmd.Flags().StringVar(&code, "catcode", "", "catcode for the identity bindings")
	cmd.MarkFlagRequired("catcode")
	return cmd
}

// parseContactFiles reads each export, sniffing the format per file.
func parseContactFiles(paths []string) ([]ingest.ContactRow, error) {
	var rows []ingest.ContactRow
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var parsed []ingest.ContactRow
		switch ingest.DetectFormat(string(data)) {
		case ingest.FormatConnections:
			parsed, err = ingest.ParseConnections(strings.NewReader(string(data)))
		case ingest.FormatContacts:
			parsed, err = ingest.ParseContacts(strings.NewReader(string(data)))
		default:
			return nil, fmt.Errorf("unrecognized export format: %s", path)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, parsed...)
	}
	return rows, nil
}

func printReport(r *ingest.Report) {
	fmt.Printf("Run %s (%s):\n", r.RunID, r.Operation)
	fmt.Printf("  created:      %d\n", r.Created)
	fmt.Printf("  skipped:      %d\n", r.Skipped)
	fmt.Printf("  pii rejected: %d\n", r.RejectedPII)
	fmt.Printf("  errors:       %d\n", r.Errors)
	for _, s := range r.Stages {
		fmt.Printf("  stage %-10s %dms", s.Name, s.DurationMs)
		for k, v := range s.Counters {
			fmt.Printf(" %s=%d", k, v)
		}
		fmt.Println()
	}
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read from the store",
	}
	cmd.AddCommand(queryWhoCmd())
	cmd.AddCommand(queryAboutCmd())
	cmd.AddCommand(queryNamesCmd())
	cmd.AddCommand(queryWhenCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(queryReadCmd())
	return cmd
}

func queryWhoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "who TERM",
		Short: "Find subjects whose ABOUT qualifiers mention a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.GetStore().Who(cmd.Context(), a.Scope(), args[0])
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, b := range found {
				fmt.Printf("%s  %s\n", b.Name, b.Qualifier)
			}
			return nil
		},
	}
}

func queryAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about NAME",
		Short: "Show every binding for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			bindings, err := a.GetStore().About(cmd.Context(), a.Scope(), args[0])
			if err != nil {
				return err
			}
			if len(bindings) == 0 {
				fmt.Println("No bindings for that name.")
				return nil
			}
			for _, b := range bindings {
				printBinding(b)
			}
			return nil
		},
	}
}

func queryNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names [PREFIX]",
		Short: "List subject names in the scope",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			names, err := a.GetStore().Names(cmd.Context(), a.Scope(), prefix)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func queryWhenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "when FROM TO",
		Short: "List bindings whose source date falls in a range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			bindings, err := a.GetStore().BindingsInRange(cmd.Context(), a.Scope(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, b := range bindings {
				printBinding(b)
			}
			return nil
		},
	}
}

func querySearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search content blobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.GetStore().SearchContent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Println("No matching content.")
				return nil
			}
			for _, c := range found {
				fmt.Printf("%d  [%s] %s  %s\n", c.ID, c.Catcode, c.NoteDate, truncate(c.Text, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of blobs to show")
	return cmd
}

func queryReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read ID",
		Short: "Print one content blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid content id: %s", args[0])
			}

			a, err := openAbra()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.GetStore().GetContent(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("ID:      %d\n", c.ID)
			fmt.Printf("Source:  %s\n", c.SourceFile)
			fmt.Printf("Date:    %s\n", c.NoteDate)
			fmt.Printf("Catcode: %s\n", c.Catcode)
			fmt.Printf("Content:\n%s\n", c.Text)
			return nil
		},
	}
}

func printBinding(b abra.Binding) {
	line := fmt.Sprintf("%s %s %s", b.Name, b.Relationship, b.TargetRef)
	if b.Qualifier != "" {
		line += " (" + b.Qualifier + ")"
	}
	if b.SourceDate != "" {
		line += "  " + b.SourceDate
	}
	fmt.Println(line)
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
