package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/usecase"
)

// Output formats accepted by --format
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type reportOutput struct {
	Report  *entities.RunReport `json:"report" yaml:"report"`
	Display usecase.ReportView  `json:"display" yaml:"display"`
}

func writeReports(w io.Writer, format string, reports []*entities.RunReport) error {
	outputs := make([]reportOutput, 0, len(reports))
	for _, r := range reports {
		outputs = append(outputs, reportOutput{Report: r, Display: usecase.NewReportView(r)})
	}

	switch format {
	case formatText:
		for _, o := range outputs {
			fmt.Fprintf(w, "%s  %s\n", o.Report.CreatedAt.Format("2006-01-02 15:04:05"), o.Display.Summary())
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(outputs)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
