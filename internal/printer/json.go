package printer

import (
	"encoding/json"
	"io"

	"github.com/slok/stackrun/internal/model"
)

// JSONPrinter prints stackrun information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// PrintPlan prints the resolved stack and its processes.
func (j *JSONPrinter) PrintPlan(stack model.Stack, procs []model.Process) error {
	return j.encode(newPlanOutput(stack, procs))
}

// PrintRunList prints the run records.
func (j *JSONPrinter) PrintRunList(runs []model.RunRecord) error {
	items := make([]runOutput, 0, len(runs))
	for _, r := range runs {
		items = append(items, newRunOutput(r))
	}
	return j.encode(items)
}

// PrintRun prints a run record.
func (j *JSONPrinter) PrintRun(run model.RunRecord) error {
	return j.encode(newRunOutput(run))
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
