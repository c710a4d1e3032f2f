package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/pkg/config"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
)

// app carries state resolved by the root command to its subcommands.
type app struct {
	configPath      string
	logLevel        string
	correctionsPath string
	cfg             *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "corrector",
		Short:        "Match measured compound formulas against known corrections",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Logging.Level = strings.ToLower(a.logLevel)
			}
			if a.correctionsPath != "" {
				cfg.Corrections.Path = a.correctionsPath
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().StringVar(&a.correctionsPath, "corrections", "", "correction library file (default ~/.massspec-corrector/corrections.txt)")

	cmd.AddCommand(
		matchCmd(a),
		statsCmd(a),
		correctionsCmd(a),
		serveCmd(a),
	)
	return cmd
}

func (a *app) repository() (*correction.FileRepository, error) {
	repo, err := correction.NewFileRepository(a.cfg.Corrections.Path)
	if err != nil {
		return nil, fmt.Errorf("opening correction library: %w", err)
	}
	return repo, nil
}

func (a *app) loadOptions() compound.LoadOptions {
	return compound.LoadOptions{
		Delimiter: a.cfg.Input.Delimiter,
		Encoding:  a.cfg.Input.Encoding,
		NoHeader:  a.cfg.Input.NoHeader,
	}
}
