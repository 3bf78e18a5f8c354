package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLowerCommand(a *app) *cobra.Command {
	var color, output string

	cmd := &cobra.Command{
		Use:   "lower <kernel.yaml>...",
		Short: "Compile kernel files and print their bytecode",
		Long: `Compile kernel files and print their bytecode.

With --output the single compiled kernel is written as a bundle that run
accepts in place of the YAML file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if len(args) != 1 {
					return errors.New("--output takes exactly one kernel")
				}
				return a.writeBundle(args[0], output)
			}
			if color == "" {
				color = a.cfg.Logging.Color
			}
			colored := useColor(color, cmd.OutOrStdout())

			for _, path := range args {
				k, err := a.compile(path)
				if err != nil {
					return err
				}
				a.logger.Debug("lowered kernel",
					zap.String("path", path),
					zap.Stringer("id", k.ID),
					zap.Int("bytes", len(k.Chunk.Code)))

				listing := k.Disassemble()
				if colored {
					listing = colorize(listing)
				}
				fmt.Fprint(cmd.OutOrStdout(), listing)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Color output: auto, always or never (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the compiled kernel bundle to this file")
	return cmd
}

func (a *app) writeBundle(path, output string) error {
	k, err := a.compile(path)
	if err != nil {
		return err
	}
	data, err := k.Bundle().Serialize()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	a.logger.Info("wrote bundle",
		zap.String("kernel", k.Name),
		zap.Stringer("id", k.ID),
		zap.String("path", output),
		zap.Int("bytes", len(data)))
	return nil
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <kernel.yaml>...",
		Short: "Check that kernel files parse and lower",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				k, err := a.compile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s %s (%s -> %s)\n", path, k.Name, k.Input, k.Output)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d kernels failed", failed, len(args))
			}
			return nil
		},
	}
}
