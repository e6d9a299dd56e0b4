package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/panel"
	"github.com/kingrea/collate/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Collate witness files once and write the results",
	Long: `Reads one witness per file ("-" reads standard input), collates them once and
either exports every panel into --out (default: a timestamped folder under
.collate/exports) or prints a single panel to standard output with --panel.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("out", "", "Directory to export panels into")
	runCmd.Flags().String("panel", "", "Print one panel to stdout: graph, table, dot, graphml or tei")
}

func runOnce(cmd *cobra.Command, args []string) error {
	var opts runOptions
	opts.out, _ = cmd.Flags().GetString("out")
	if name, _ := cmd.Flags().GetString("panel"); name != "" {
		id, err := panel.ParseID(name)
		if err != nil {
			return err
		}
		opts.only = &id
	}

	contents, err := readWitnesses(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.startMetrics(cmd.Context())

	return collateOnce(cmd.Context(), rt.session, contents, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runOptions selects where one-shot results go: a single panel to stdout,
// or every panel into out (a timestamped export folder when empty).
type runOptions struct {
	out  string
	only *panel.ID
}

// collateOnce submits contents, reports each failure on stderr as it
// arrives and writes whatever succeeded. The returned error summarizes the
// failures after the successful panels were written.
func collateOnce(ctx context.Context, sess *session.Session, contents []string, opts runOptions, stdout, stderr io.Writer) error {
	sess.Store.ReplaceAll(contents)
	failures, err := sess.Dispatcher.Collate(ctx, sess.Store.Snapshot(), func(err error) {
		sess.Logbook.Error("%s", err.Error())
		fmt.Fprintln(stderr, err)
	})
	if err != nil {
		return err
	}
	total := len(collate.Representations())
	summary := failureSummary(failures, total)
	if failures == total {
		return summary
	}

	if opts.only != nil {
		if !sess.Panels.Populated(*opts.only) {
			if summary == nil {
				return fmt.Errorf("%s: no result", opts.only.Title())
			}
			return fmt.Errorf("%s: no result: %w", opts.only.Title(), summary)
		}
		if err := sess.Panels.WriteTo(*opts.only, stdout); err != nil {
			return err
		}
		return summary
	}

	out := opts.out
	var files []string
	if out != "" {
		files, err = sess.Panels.Export(out)
	} else {
		out, files, err = sess.Export()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d panels to %s\n", len(files), out)
	return summary
}

func failureSummary(failures, total int) error {
	switch {
	case failures == 0:
		return nil
	case failures == total:
		return fmt.Errorf("all %d representations failed", total)
	}
	return fmt.Errorf("%d of %d representations failed", failures, total)
}

// readWitnesses loads one witness per argument; "-" reads from stdin once.
func readWitnesses(args []string, stdin io.Reader) ([]string, error) {
	contents := make([]string, 0, len(args))
	usedStdin := false
	for _, arg := range args {
		var (
			data []byte
			err  error
		)
		if arg == "-" {
			if usedStdin {
				return nil, fmt.Errorf("standard input can only be read once")
			}
			usedStdin = true
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			return nil, fmt.Errorf("read witness %s: %w", arg, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("witness %s is empty", arg)
		}
		contents = append(contents, string(data))
	}
	return contents, nil
}
