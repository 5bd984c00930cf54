package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	applogs "github.com/bryanwahyu/logtriage/internal/application/logs"
	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
	"github.com/bryanwahyu/logtriage/internal/middleware"
)

// stdinName is the filename recorded for input read from "-".
const stdinName = "stdin.log"

// errAnalysisFailed makes the process exit non-zero after printing a failure result.
var errAnalysisFailed = errors.New("one or more analyses failed")

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var showSanitized bool
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Long:  "Redact and analyze log files, reusing cached results. A FILE of - reads standard input.",
		Short: "Redact and analyze log files, reusing cached results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			var results []applogs.ProcessResult
			failed := false
			for _, path := range args {
				name := filepath.Base(path)
				if path == "-" {
					name = stdinName
				}
				if err := middleware.ValidateFilename(name); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				content, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				if len(content) == 0 {
					return fmt.Errorf("%s: empty input", path)
				}
				res, err := svc.Process(cmd.Context(), applogs.ProcessCommand{
					Filename:  name,
					Content:   toText(content),
					SizeBytes: int64(len(content)),
				})
				if err != nil && (res.Source != domain.SourceFreshAnalysis || !errors.Is(err, domain.ErrStorageUnavailable)) {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: result not cached: %v\n", path, err)
				}
				if res.Analysis.Failed() {
					failed = true
				}
				if opts.format == "json" {
					results = append(results, res)
					continue
				}
				fmt.Fprintf(out, "%s  %s  (%s, %d redactions)\n",
					name, colorFaint.Sprint(res.Fingerprint.Short()), sourceLabel(res.Source), res.Redactions)
				printAnalysis(out, res.Analysis)
				if showSanitized {
					fmt.Fprintf(out, "  Sent to analyzer:\n%s\n", indent(highlightMarkers(res.Sanitized)))
				}
				fmt.Fprintln(out)
			}
			if opts.format == "json" {
				if err := writeJSON(out, results); err != nil {
					return err
				}
			}
			if failed {
				return errAnalysisFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSanitized, "show-sanitized", false, "print the redacted text sent to the analyzer")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List cached analyses, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			recs, err := svc.History(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && limit < len(recs) {
				recs = recs[:limit]
			}
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				if recs == nil {
					recs = []*domain.LogRecord{}
				}
				return writeJSON(out, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No analyses yet.")
				return nil
			}
			for _, r := range recs {
				printRecord(out, r)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n entries (0 = all)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show FINGERPRINT",
		Short: "Show one cached analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp := strings.ToLower(strings.TrimSpace(args[0]))
			if err := middleware.ValidateFingerprint(fp); err != nil {
				return err
			}
			svc, closeFn, err := opts.service(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := svc.Get(cmd.Context(), domain.Fingerprint(fp))
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func newRedactCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redact [FILE|-]",
		Short: "Print what would be sent to the analyzer, without analyzing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			content, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			svc, closeFn, err := opts.service(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			p := svc.Preview(toText(content))
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return writeJSON(out, p)
			}
			fmt.Fprintln(out, highlightMarkers(p.Sanitized))
			fmt.Fprintf(cmd.ErrOrStderr(), "fingerprint %s, %d redactions\n", p.Fingerprint, p.Redactions.Total())
			return nil
		},
	}
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count cached analyses by severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			c, err := svc.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return writeJSON(out, c)
			}
			fmt.Fprintf(out, "%s %d\n", badge("Critical"), c.Critical)
			fmt.Fprintf(out, "%s %d\n", badge("High"), c.High)
			fmt.Fprintf(out, "%s %d\n", badge("Medium"), c.Medium)
			fmt.Fprintf(out, "%s %d\n", badge("Low"), c.Low)
			fmt.Fprintf(out, "[UNKNOWN] %d\n", c.Unknown)
			fmt.Fprintf(out, "Total: %d\n", c.Total)
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func toText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}
