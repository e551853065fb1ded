// Package cli wires configuration and components into the predictor commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/trogers1052/asset-predictor/internal/config"
	"github.com/trogers1052/asset-predictor/internal/logger"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "predictor",
		Short: "Asset closing price predictor",
		Long: `predictor asks a hosted Gemini model to estimate an asset's next closing
price from three opening prices, trading volume and the latest jobs report.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newPredictCmd())

	return rootCmd
}

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

// newRecordCmd creates the record command
func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Store prediction events from Kafka in PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRecorder()
			if err != nil {
				return err
			}
			return runRecord(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

// newPredictCmd creates the one-shot predict command
func newPredictCmd() *cobra.Command {
	defaults := models.DefaultPredictionInput()
	var in models.PredictionInput
	var jobs string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict one closing price and print it",
		Long: `Predict one closing price and print the chart series.
Example: predictor predict --ticker AAPL --day1 150.25 --day2 151.00 --day3 150.75 --volume 85M --jobs Neutral`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			in.JobsReport = models.JobsReport(jobs)

			// stdout carries the result
			log := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, os.Stderr)
			res, err := runPredict(cmd.Context(), cfg, log, in)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&in.Ticker, "ticker", defaults.Ticker, "Asset ticker")
	cmd.Flags().StringVar(&in.Day1Open, "day1", defaults.Day1Open, "Day 1 opening price")
	cmd.Flags().StringVar(&in.Day2Open, "day2", defaults.Day2Open, "Day 2 opening price")
	cmd.Flags().StringVar(&in.Day3Open, "day3", defaults.Day3Open, "Day 3 opening price")
	cmd.Flags().StringVar(&in.Volume, "volume", defaults.Volume, "Trading volume, e.g. 25.5M")
	cmd.Flags().StringVar(&jobs, "jobs", string(defaults.JobsReport), "Jobs report: Strong, Neutral or Weak")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
}

func printResult(w io.Writer, res *prediction.Result) error {
	fmt.Fprintf(w, "Predicted closing price for %s: %s\n\n", res.Ticker, res.Headline)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range res.Points {
		fmt.Fprintf(tw, "%s\t%.2f\n", p.Name, p.Price)
	}
	return tw.Flush()
}
