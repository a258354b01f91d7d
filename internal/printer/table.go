package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/stackrun/internal/model"
)

// TablePrinter prints stackrun information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintPlan prints the run options and the processes that would be launched.
func (t *TablePrinter) PrintPlan(stack model.Stack, procs []model.Process) error {
	opts := stack.Options

	tunnel := "disabled"
	if stack.TunnelEnabled {
		tunnel = fmt.Sprintf("enabled (%s)", stack.Tunnel.Name)
	}
	killOthers := "-"
	if len(opts.KillOthers) > 0 {
		ks := make([]string, 0, len(opts.KillOthers))
		for _, k := range opts.KillOthers {
			ks = append(ks, string(k))
		}
		killOthers = strings.Join(ks, ",")
	}

	fmt.Fprintf(t.writer, "Tunnel:            %s\n", tunnel)
	fmt.Fprintf(t.writer, "Kill others:       %s\n", killOthers)
	fmt.Fprintf(t.writer, "Success condition: %s\n", opts.SuccessCondition)
	fmt.Fprintf(t.writer, "Kill signal:       %s\n", opts.KillSignal)
	fmt.Fprintf(t.writer, "Handle input:      %t\n", opts.HandleInput)
	fmt.Fprintf(t.writer, "Before commands:   %d\n", len(stack.BeforeCommands))
	fmt.Fprintf(t.writer, "After commands:    %d\n", len(stack.AfterCommands))

	if len(procs) == 0 {
		fmt.Fprintln(t.writer, "\nNo processes to run")
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "INDEX\tNAME\tCOLOR\tCWD\tCOMMAND")
	for _, p := range procs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Index, p.Label(), dash(p.PrefixColor), dash(p.Cwd), p.Command)
	}

	return nil
}

// PrintRunList prints run records in a table format.
func (t *TablePrinter) PrintRunList(runs []model.RunRecord) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTATUS\tPROCESSES\tTUNNEL\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			r.ID, r.Status, processSummary(r.Processes), r.TunnelEnabled, TimeAgo(r.StartedAt), FormatDuration(r.Duration()))
	}

	return nil
}

// PrintRun prints a detailed run record.
func (t *TablePrinter) PrintRun(run model.RunRecord) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", run.Status)
	fmt.Fprintf(t.writer, "Config:     %s\n", dash(run.ConfigFile))
	fmt.Fprintf(t.writer, "Tunnel:     %t\n", run.TunnelEnabled)
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(run.StartedAt))
	fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(run.FinishedAt))
	fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(run.Duration()))

	if len(run.Processes) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "INDEX\tNAME\tSTATE\tEXIT CODE\tDURATION\tCOMMAND")
	for _, p := range run.Processes {
		var d string
		if p.StartedAt.IsZero() || p.FinishedAt.IsZero() {
			d = "-"
		} else {
			d = FormatDuration(p.FinishedAt.Sub(p.StartedAt))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", p.Index, dash(p.Name), p.State, p.ExitCode, d, p.Command)
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func processSummary(procs []model.ProcessStatus) string {
	ok := 0
	for _, p := range procs {
		if p.Succeeded() {
			ok++
		}
	}
	return fmt.Sprintf("%d/%d ok", ok, len(procs))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
