package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/funvibe/coludf/internal/column"
	"github.com/funvibe/coludf/internal/kernel"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/vm"
)

type runOptions struct {
	values string

	db          string
	table       string
	column      string
	writeTable  string
	writeColumn string

	format    string
	out       string
	workers   int
	blockSize int
	trace     bool
	traceTo   io.Writer
}

func newRunCommand(a *app) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <kernel.yaml>",
		Short: "Run a kernel over a column",
		Long: `Run a kernel over an input column and print or store the results.

The input comes from --values (comma separated, NA for a missing row) or from
a SQLite table with --db, --table and --column. Results are printed in the
chosen --format and, with --write-table, stored back into the database.`,
		Example: `  coludf run add_one.yaml --values 1,NA,3
  coludf run upper.yaml --db data.db --table people --column name --write-table out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.traceTo = cmd.ErrOrStderr()
			return a.run(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.values, "values", "", "Inline input rows, comma separated")
	f.StringVar(&o.db, "db", "", "SQLite database holding the input column")
	f.StringVar(&o.table, "table", "", "Input table")
	f.StringVar(&o.column, "column", "", "Input column")
	f.StringVar(&o.writeTable, "write-table", "", "Store results into this table of --db")
	f.StringVar(&o.writeColumn, "write-column", "result", "Column name for stored results")
	f.StringVarP(&o.format, "format", "f", "text", "Output format: text, json or proto")
	f.StringVarP(&o.out, "out", "o", "", "Write output to a file instead of stdout")
	f.IntVar(&o.workers, "workers", 0, "Worker count (default from config)")
	f.IntVar(&o.blockSize, "block-size", 0, "Rows per block (default from config)")
	f.BoolVar(&o.trace, "trace", false, "Print every executed instruction to stderr (runs on one worker)")
	cmd.MarkFlagsMutuallyExclusive("values", "db")
	cmd.MarkFlagsRequiredTogether("db", "table", "column")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, o *runOptions) error {
	switch o.format {
	case "text", "json", "proto":
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}
	if o.writeTable != "" && o.db == "" {
		return errors.New("--write-table needs --db")
	}

	k, err := a.compile(path)
	if err != nil {
		return err
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	if o.db == "" {
		in, err := parseValues(k.Input, o.values)
		if err != nil {
			return err
		}
		out, err := a.launch(ctx, k, in, o)
		if err != nil {
			return err
		}
		return a.emit(cmd, out, o)
	}

	db, err := column.OpenSQLite(o.db)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := column.ReadSQLite(ctx, db, o.table, o.column, k.Input)
	if err != nil {
		return err
	}
	out, err := a.launch(ctx, k, in, o)
	if err != nil {
		return err
	}
	if o.writeTable != "" {
		if err := column.WriteSQLite(ctx, db, o.writeTable, o.writeColumn, out); err != nil {
			return err
		}
		a.logger.Info("stored results",
			zap.String("table", o.writeTable),
			zap.String("column", o.writeColumn),
			zap.Int("rows", out.Len()))
	}
	return a.emit(cmd, out, o)
}

// launch runs k over in and rebuilds the output column.
func (a *app) launch(ctx context.Context, k *kernel.Kernel, in *column.Column, o *runOptions) (*column.Column, error) {
	cfg := vm.LaunchConfig{
		Workers:   a.cfg.Launch.Workers,
		BlockSize: a.cfg.Launch.BlockSize,
		ArenaSize: a.cfg.Launch.ArenaSize,
		Logger:    a.logger,
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.blockSize > 0 {
		cfg.BlockSize = o.blockSize
	}
	if o.trace {
		cfg.Tracer = vm.TraceWriter(o.traceTo)
	}

	buf := vm.NewOutputBuffer(in.Len())
	if err := k.Run(ctx, in, buf, cfg); err != nil {
		return nil, fmt.Errorf("running %s: %w", k.Name, err)
	}
	out, err := column.FromOutput(k.Output, buf)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("kernel finished",
		zap.String("kernel", k.Name),
		zap.Int("rows", out.Len()),
		zap.Int("nulls", out.NullCount()))
	return out, nil
}

// emit writes the output column in the chosen format.
func (a *app) emit(cmd *cobra.Command, c *column.Column, o *runOptions) error {
	w := cmd.OutOrStdout()
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch o.format {
	case "json":
		data, err := column.ExportJSON(c)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "proto":
		return column.ExportProto(w, c)
	}
	return writeText(w, c)
}

func writeText(w io.Writer, c *column.Column) error {
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		if v == nil {
			v = "NA"
		}
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

// parseValues reads a comma separated row list as a column of t. NA, null
// and an empty field are missing rows.
func parseValues(t typesystem.Type, list string) (*column.Column, error) {
	if list == "" {
		return column.FromSlice(t, nil)
	}
	fields := strings.Split(list, ",")
	vals := make([]any, len(fields))
	for i, field := range fields {
		v, err := parseValue(t, field)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = v
	}
	return column.FromSlice(t, vals)
}

func parseValue(t typesystem.Type, field string) (any, error) {
	if typesystem.IsString(t) {
		if field == "NA" {
			return nil, nil
		}
		return field, nil
	}

	field = strings.TrimSpace(field)
	switch field {
	case "", "NA", "null":
		return nil, nil
	}
	switch tt := t.(type) {
	case typesystem.Boolean:
		return strconv.ParseBool(field)
	case typesystem.Integer:
		if !tt.Signed {
			return strconv.ParseUint(field, 10, int(tt.Bits))
		}
		return strconv.ParseInt(field, 10, int(tt.Bits))
	case typesystem.Float:
		return strconv.ParseFloat(field, int(tt.Bits))
	case typesystem.NPDatetime, typesystem.NPTimedelta:
		return strconv.ParseInt(field, 10, 64)
	}
	return nil, fmt.Errorf("cannot read %s values", t)
}
