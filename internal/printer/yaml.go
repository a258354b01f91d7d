package printer

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/slok/stackrun/internal/model"
)

// YAMLPrinter prints stackrun information in YAML format.
type YAMLPrinter struct {
	writer io.Writer
}

// NewYAMLPrinter creates a new YAML printer.
func NewYAMLPrinter(w io.Writer) *YAMLPrinter {
	return &YAMLPrinter{writer: w}
}

// PrintPlan prints the resolved stack and its processes.
func (y *YAMLPrinter) PrintPlan(stack model.Stack, procs []model.Process) error {
	return y.encode(newPlanOutput(stack, procs))
}

// PrintRunList prints the run records.
func (y *YAMLPrinter) PrintRunList(runs []model.RunRecord) error {
	items := make([]runOutput, 0, len(runs))
	for _, r := range runs {
		items = append(items, newRunOutput(r))
	}
	return y.encode(items)
}

// PrintRun prints a run record.
func (y *YAMLPrinter) PrintRun(run model.RunRecord) error {
	return y.encode(newRunOutput(run))
}

// PrintMessage prints a simple message in YAML format.
func (y *YAMLPrinter) PrintMessage(msg string) error {
	return y.encode(messageOutput{Message: msg})
}

func (y *YAMLPrinter) encode(v any) error {
	enc := yaml.NewEncoder(y.writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
