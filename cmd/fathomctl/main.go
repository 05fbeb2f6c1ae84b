// fathomctl runs ingestion and query pipelines against local files
// without a server: parse a CSV/JSON/Arrow file, optionally run a
// pipeline of operations over it, and print or export the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fathom-data/fathom-engine/pkg/engine"
	"github.com/fathom-data/fathom-engine/pkg/optimizer"
	"github.com/fathom-data/fathom-engine/pkg/parsers"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/store"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

var rootCmd = &cobra.Command{
	Use:   "fathomctl",
	Short: "Run fathom-engine pipelines against local files",
}

func main() {
	rootCmd.AddCommand(runCmd(), statsCmd(), convertCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var pipelineFile string
	var parallel bool
	var limit int

	cmd := &cobra.Command{
		Use:   "run <data-file>",
		Short: "Parse a file, run a pipeline over it, and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			tbl, err := loadFile(args[0])
			if err != nil {
				return err
			}

			var ops []query.Operation
			if pipelineFile != "" {
				ops, err = loadPipeline(pipelineFile)
				if err != nil {
					return err
				}
			}

			st := store.New(logger)
			meta, err := st.Register("", filepath.Base(args[0]), tbl)
			if err != nil {
				return err
			}
			plan, err := optimizer.New(logger).Plan(ops, meta)
			if err != nil {
				return err
			}
			eng := engine.New(engine.Config{}, logger)
			res, err := eng.Execute(context.Background(), tbl, plan, engine.Options{UseParallel: parallel})
			if err != nil {
				return err
			}

			printTable(cmd.OutOrStdout(), res.Table, limit)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows in %s\n", res.Table.NumRows(), res.ExecutionTime)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pipelineFile, "pipeline", "p", "", "pipeline file (YAML or JSON operations list)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "use parallel execution when eligible")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows to print (0 = all)")
	return cmd
}

func statsCmd() *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "stats <data-file>",
		Short: "Print per-column statistics for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadFile(args[0])
			if err != nil {
				return err
			}
			st := store.New(zap.NewNop())
			meta, err := st.Register("", filepath.Base(args[0]), tbl)
			if err != nil {
				return err
			}

			stats := meta.ColumnStats
			if column != "" {
				s, ok := stats[column]
				if !ok {
					return fmt.Errorf("column %q not found", column)
				}
				stats = map[string]store.ColumnStats{column: s}
			}
			encoded, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVarP(&column, "column", "c", "", "limit output to one column")
	return cmd
}

func convertCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "convert <data-file>",
		Short: "Convert a CSV or JSON file to an Arrow IPC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			tbl, err := loadFile(args[0])
			if err != nil {
				return err
			}
			encoded, err := parsers.EncodeArrow(tbl)
			if err != nil {
				return err
			}
			return os.WriteFile(out, encoded, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path for the Arrow file")
	return cmd
}

func loadFile(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var typ parsers.SourceType
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		typ = parsers.SourceCSV
	case ".json":
		typ = parsers.SourceJSON
	case ".arrow", ".arrows", ".feather":
		typ = parsers.SourceArrow
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}

	opts := parsers.Options{}
	if typ == parsers.SourceCSV && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opts.Delimiter = '\t'
	}
	res, err := parsers.Parse(parsers.DataSource{Type: typ, Data: data, Options: opts})
	if err != nil {
		return nil, err
	}
	for _, pe := range res.ParseErrors {
		fmt.Fprintf(os.Stderr, "warning: row %d: %s\n", pe.Row, pe.Message)
	}
	return res.Table, nil
}

// loadPipeline reads an operations list from YAML or JSON. YAML decodes
// through an any-tree re-encoded as JSON, so one set of struct tags
// serves both formats.
func loadPipeline(path string) ([]query.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse pipeline %s: %w", path, err)
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var ops []query.Operation
	if err := json.Unmarshal(encoded, &ops); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return ops, nil
}

func printTable(w interface{ Write([]byte) (int, error) }, t *table.Table, limit int) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	names := make([]string, t.NumColumns())
	for i, col := range t.Columns() {
		names[i] = col.Name()
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	n := t.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		cells := make([]string, t.NumColumns())
		for j, v := range t.Row(i) {
			if v == nil {
				cells[j] = "null"
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if n < t.NumRows() {
		fmt.Fprintf(tw, "... %d more rows\n", t.NumRows()-n)
	}
	_ = tw.Flush()
}
