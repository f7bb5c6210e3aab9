package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/analysis"
	"github.com/bsaid97/go-parcel-consolidator/config"
	"github.com/bsaid97/go-parcel-consolidator/logging"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "parcels:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	source     string
	format     string
	regionType string
	regions    []string
}

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	svc    *service
	sel    selection
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "parcels",
		Short: "Cadastral parcel consolidation analysis",
		Long: "parcels reads a cadastral parcel source (CSV or shapefile) and reports\n" +
			"parcel adjacency, contiguous same-owner merges, the owner graph,\n" +
			"ownership swap suggestions and area statistics, per region if asked.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.source, "source", "s", "", "parcel source file (.csv or .shp)")
	pf.StringVar(&opts.format, "format", "", "source format (csv, shapefile); guessed from the extension when empty")
	pf.StringVar(&opts.regionType, "region-type", "", "split the report by parish, municipality or island")
	pf.StringArrayVar(&opts.regions, "region", nil, "region to report on; repeatable, all regions when omitted")

	cmd.AddCommand(
		newRegionsCommand(a),
		newReportCommand(a, "check", "List boundaries that cannot be parsed", withoutContext((*service).Check)),
		newReportCommand(a, "adjacency", "Report adjacent parcel pairs", withoutContext((*service).Adjacency)),
		newReportCommand(a, "merge", "Merge contiguous parcels of the same owner", withoutContext((*service).Merge)),
		newReportCommand(a, "owners", "Report the owner adjacency graph", withoutContext((*service).Owners)),
		newReportCommand(a, "swaps", "Suggest ownership swaps between neighbours", withoutContext((*service).Swaps)),
		newReportCommand(a, "areas", "Report area totals and averages", withoutContext((*service).Areas)),
		newReportCommand(a, "analyze", "Run the whole analysis", runAnalyze),
		newServeCommand(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	v := config.New()
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"log.level":     "log-level",
		"source.path":   "source",
		"source.format": "format",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	aopts, err := analysis.OptionsFromConfig(cfg.Analysis, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sel, err := newSelection(opts.regionType, opts.regions)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.svc = newService(aopts)
	a.sel = sel
	logger.Debug("configuration loaded",
		zap.String("config", opts.configPath),
		zap.String("source", cfg.Source.Path),
		zap.String("predicate", cfg.Analysis.Predicate),
		zap.String("potential", cfg.Analysis.Potential),
		zap.Float64("swapThreshold", cfg.Analysis.SwapThreshold))
	return nil
}

func csvOptions(src config.SourceConfig) parcels.CSVOptions {
	opts := parcels.DefaultCSVOptions()
	if r := []rune(src.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	return opts
}

// loadStore reads the configured source.
func (a *app) loadStore() (*parcels.Store, error) {
	if a.cfg.Source.Path == "" {
		return nil, errors.New("no parcel source: set --source or source.path")
	}
	ps, err := parcels.Load(a.cfg.Source.Path, a.cfg.Source.Format, csvOptions(a.cfg.Source))
	if err != nil {
		return nil, err
	}
	a.logger.Info("parcels loaded", zap.String("source", a.cfg.Source.Path), zap.Int("parcels", len(ps)))
	return parcels.NewStore(ps)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
