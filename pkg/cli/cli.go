// Package cli implements the coludf command line: compile kernel files,
// show their bytecode and run them over columns.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/funvibe/coludf/internal/config"
	"github.com/funvibe/coludf/internal/kernel"
	"github.com/funvibe/coludf/internal/logging"
	"github.com/funvibe/coludf/internal/vm"
)

// app carries what every subcommand needs once the root command has set up.
type app struct {
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg      *config.Config
	logger   *zap.Logger
	compiler *kernel.Compiler
}

// NewRootCommand builds the coludf command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "coludf",
		Short: "Compile and run row-wise UDF kernels over nullable columns",
		Long: `coludf lowers typed row-wise functions over nullable scalars and
strings into bytecode kernels and runs them over columns, one unit per row.

Kernels are described in YAML files; runtime settings come from coludf.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to coludf.yaml (default: search from the working directory)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Abort runs after this long (0 means no limit)")

	root.AddCommand(newLowerCommand(a))
	root.AddCommand(newRunCommand(a))
	root.AddCommand(newCheckCommand(a))
	return root
}

// Execute runs the command line with the given arguments and returns the
// process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the runtime config and builds the logger and compiler.
func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		if path, err = config.FindConfig(wd); err != nil {
			return err
		}
	}

	a.cfg = config.Default()
	if path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	logger, err := logging.New(a.cfg.Logging, a.verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	if path != "" {
		logger.Debug("loaded config", zap.String("path", path))
	}

	a.compiler = kernel.NewCompiler(kernel.WithLogger(logger))
	return nil
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(parent, a.timeout)
	}
	return context.WithCancel(parent)
}

// compile loads a kernel from a YAML description or a serialized bundle.
func (a *app) compile(path string) (*kernel.Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kernel %s: %w", path, err)
	}
	if vm.IsBundle(data) {
		k, err := kernel.Load(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.logger.Debug("loaded bundle", zap.String("path", path), zap.Stringer("id", k.ID))
		return k, nil
	}

	kf, err := config.ParseKernel(data, path)
	if err != nil {
		return nil, err
	}
	k, err := a.compiler.Compile(kf.Function, kf.Input, kf.Output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}
