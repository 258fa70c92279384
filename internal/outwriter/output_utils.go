package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/parquet"
	"github.com/olekukonko/tablewriter"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, rows [][]string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// writeParquet writes rows through the shared parquet writer.
func writeParquet[T any](w io.Writer, rows []T) error {
	if err := parquet.Write(w, rows); err != nil {
		return fmt.Errorf("error writing parquet output: %w", err)
	}
	return nil
}

// writeTable renders a table with the given headers and rows.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// statusLabel returns a colored label when colors are enabled.
func statusLabel(label string, cfg *contract.Config) string {
	if !cfg.UseColors || color.NoColor {
		return label
	}
	return contract.GetColorLabel(label)
}

// errUnsupported reports an output mode a view cannot render.
func errUnsupported(cfg *contract.Config, view string) error {
	return fmt.Errorf("%s output is not supported for %s", cfg.Output, view)
}
