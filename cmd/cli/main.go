package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"ppcheck/adapters/csvfile"
	"ppcheck/adapters/excel"
	"ppcheck/adapters/mcmc"
	"ppcheck/adapters/rng"
	"ppcheck/app"
	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/replicate"
	"ppcheck/domain/simulate"
	"ppcheck/internal"
	"ppcheck/internal/config"
	"ppcheck/internal/report"
	"ppcheck/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ppcheck",
		Short: "Posterior predictive checks for count models with observation-level random effects",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newCheckCmd(),
		newCrossValCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readerFor picks a dataset reader from the file extension
func readerFor(path string) ports.DatasetReader {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return excel.NewReader()
	}
	return csvfile.NewReader()
}

func loadTable(path, countCol, covCol string) (*dataset.Table, error) {
	return readerFor(path).Read(context.Background(), path, countCol, covCol)
}

func newSimulateCmd() *cobra.Command {
	var n int
	var alpha, beta, sigma float64
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate synthetic count data from a known generative process",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := rand.New(rand.NewSource(uint64(seed)))
			table, err := simulate.Table(simulate.Params{Alpha: alpha, Beta: beta, Sigma: sigma}, n, src)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w := csv.NewWriter(f)
			defer w.Flush()
			if err := w.Write([]string{"count", "covariate"}); err != nil {
				return err
			}
			for _, row := range table.Rows() {
				if err := w.Write([]string{
					strconv.Itoa(row.Count),
					strconv.FormatFloat(row.Covariate, 'g', -1, 64),
				}); err != nil {
					return err
				}
			}
			fmt.Printf("wrote %d observations to %s\n", table.Len(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 100, "number of observations")
	cmd.Flags().Float64Var(&alpha, "alpha", 1.0, "true intercept")
	cmd.Flags().Float64Var(&beta, "beta", 0.5, "true slope")
	cmd.Flags().Float64Var(&sigma, "sigma", 0.8, "true offset standard deviation")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&out, "out", "simulated.csv", "output CSV path")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var countCol, covCol string
	var olre bool
	var mass float64
	var seed int64
	var policies []string

	cmd := &cobra.Command{
		Use:   "check [dataset-file]",
		Short: "Run a full-data posterior predictive check and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			table, err := loadTable(args[0], countCol, covCol)
			if err != nil {
				return err
			}

			resolved := make([]replicate.Policy, 0, len(policies))
			for _, name := range policies {
				p, ok := replicate.ByName(name)
				if !ok {
					return fmt.Errorf("unknown policy %q", name)
				}
				resolved = append(resolved, p)
			}

			log := internal.NewDefaultLogger()
			svc := app.NewCheckService(mcmc.NewEngine(), rng.NewStreamFactory(), nil, log)
			fit := ports.DefaultFitOptions(seed)
			fit.Warmup = cfg.Sampler.Warmup
			fit.Samples = cfg.Sampler.Samples

			result, err := svc.Run(cmd.Context(), app.CheckRequest{
				Dataset:  filepath.Base(args[0]),
				Table:    table,
				Spec:     model.NewSpec(model.DefaultPriors(), olre),
				Policies: resolved,
				Mass:     mass,
				Fit:      fit,
			})
			if err != nil {
				return err
			}
			fmt.Print(report.Build(result.Record, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&countCol, "count-col", "count", "name of the count column")
	cmd.Flags().StringVar(&covCol, "covariate-col", "covariate", "name of the covariate column")
	cmd.Flags().BoolVar(&olre, "olre", true, "include an observation-level random effect")
	cmd.Flags().Float64Var(&mass, "mass", 0.9, "credible interval mass")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringSliceVar(&policies, "policies",
		[]string{replicate.PolicyNoOLRE, replicate.PolicyFixedOffset, replicate.PolicyMixed},
		"replication policies to run")
	return cmd
}

func newCrossValCmd() *cobra.Command {
	var countCol, covCol string
	var olre bool
	var mass float64
	var seed int64
	var workers int

	cmd := &cobra.Command{
		Use:   "crossval [dataset-file]",
		Short: "Run exact leave-one-out cross-validation with mixed replication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			table, err := loadTable(args[0], countCol, covCol)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Sampler.FoldWorkers
			}

			log := internal.NewDefaultLogger()
			svc := app.NewCrossValService(mcmc.NewEngine(), rng.NewStreamFactory(), log, workers)
			fit := ports.DefaultFitOptions(seed)
			fit.Warmup = cfg.Sampler.Warmup
			fit.Samples = cfg.Sampler.Samples

			result, err := svc.Run(cmd.Context(), app.CrossValRequest{
				Table: table,
				Spec:  model.NewSpec(model.DefaultPriors(), olre),
				Fit:   fit,
			})
			if err != nil {
				return err
			}

			fmt.Printf("folds attempted: %d, converged: %d, failed: %d\n",
				result.N(), len(result.Folds), len(result.Failed))
			for _, f := range result.Failed {
				fmt.Printf("  fold %d FAILED: %s\n", f.Index, f.Err)
			}
			if len(result.Failed) == 0 {
				matrix, err := result.Matrix()
				if err != nil {
					return err
				}
				cov, err := matrix.CoverageAgainst(table, mass)
				if err != nil {
					return err
				}
				fmt.Printf("out-of-sample %.0f%% interval coverage: %d/%d inside (mean width %.1f)\n",
					mass*100, cov.Inside, table.Len(), cov.MeanWidth)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&countCol, "count-col", "count", "name of the count column")
	cmd.Flags().StringVar(&covCol, "covariate-col", "covariate", "name of the covariate column")
	cmd.Flags().BoolVar(&olre, "olre", true, "include an observation-level random effect")
	cmd.Flags().Float64Var(&mass, "mass", 0.9, "credible interval mass")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "max concurrent folds (0 = config default)")
	return cmd
}
