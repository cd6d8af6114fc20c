/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/txengine"
	"github.com/blnkfinance/txengine/config"
	"github.com/blnkfinance/txengine/internal/files"
	"github.com/blnkfinance/txengine/internal/txerror"
	"github.com/blnkfinance/txengine/model"
)

// TxEngine represents the CLI application, encapsulating the root Cobra command.
type TxEngine struct {
	cmd *cobra.Command
}

// txEngineInstance holds the runtime configuration shared by the commands.
type txEngineInstance struct {
	cnf   *config.Configuration
	runID string
}

// flagOverrides holds command line values that take precedence over the
// configuration file and environment.
type flagOverrides struct {
	configFile         string
	format             string
	output             string
	logLevel           string
	allowRedispute     bool
	disputeWithdrawals bool
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and applies flag overrides before any command runs.
func preRun(app *txEngineInstance, flags *flagOverrides) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(flags.configFile)
		if err != nil {
			return txerror.New(txerror.ErrInvalidConfig, "error loading config", err.Error())
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("format") {
			cnf.Output.Format = flags.format
		}
		if cmd.Flags().Changed("log-level") {
			cnf.Log.Level = flags.logLevel
		}
		if cmd.Flags().Changed("allow-redispute") {
			allow := flags.allowRedispute
			cnf.Policy.AllowRedispute = &allow
		}
		if cmd.Flags().Changed("dispute-withdrawals") {
			cnf.Policy.DisputeWithdrawals = flags.disputeWithdrawals
		}

		if _, err := files.ParseFormat(cnf.Output.Format); err != nil {
			return txerror.New(txerror.ErrInvalidConfig, err.Error(), nil)
		}
		if _, err := logrus.ParseLevel(cnf.Log.Level); err != nil {
			return txerror.New(txerror.ErrInvalidConfig, err.Error(), nil)
		}

		cnf.ConfigureLogger()
		app.cnf = cnf
		app.runID = model.GenerateUUIDWithSuffix("run")
		return nil
	}
}

// inputArg requires exactly one positional argument naming the input file.
func inputArg(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("input csv file not provided. usage: %s", cmd.UseLine())
	}
	if len(args) > 1 {
		return fmt.Errorf("expected a single input csv file, got %d arguments", len(args))
	}
	return nil
}

// openOutput returns the destination for the snapshot and a function closing it.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, txerror.New(txerror.ErrSinkFailure, "cannot create output file", err.Error())
	}
	return f, f.Close, nil
}

// processFile runs the input file through a new engine and writes the snapshot to out.
func processFile(ctx context.Context, app *txEngineInstance, input string, out io.Writer) error {
	cnf := app.cnf

	f, err := files.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	format, err := files.ParseFormat(cnf.Output.Format)
	if err != nil {
		return txerror.New(txerror.ErrInvalidConfig, err.Error(), nil)
	}

	engine := txengine.NewEngine(
		txengine.WithPrecision(cnf.DecimalPlaces()),
		txengine.WithRedispute(cnf.RedisputeAllowed()),
		txengine.WithWithdrawalDisputes(cnf.Policy.DisputeWithdrawals),
	)

	stats, err := engine.Process(ctx, files.NewReader(f, cnf.DecimalPlaces()), files.NewWriter(out, format))
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"run_id":  app.runID,
		"input":   input,
		"read":    stats.Read,
		"applied": stats.Applied,
		"skipped": stats.Skipped,
	}).Info("processing complete")
	for code, count := range stats.Reasons {
		logrus.WithFields(logrus.Fields{"run_id": app.runID, "code": code, "count": count}).Debug("skipped records")
	}
	return nil
}

const longUsage = "Replay a CSV stream of client transactions and print the resulting account balances.\n\n" +
	"An input file named config must be given with a path, e.g. ./config, so it is not taken for the config subcommand."

// NewCLI creates the command-line interface for the engine.
func NewCLI() *TxEngine {
	flags := &flagOverrides{}
	app := &txEngineInstance{}

	var rootCmd = &cobra.Command{
		Use:           "txengine <input.csv>",
		Short:         "Replay a CSV stream of client transactions and print the resulting account balances",
		Long:          longUsage,
		Args:          inputArg,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out, closeOut, err := openOutput(cmd, flags.output)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeOut(); cerr != nil && err == nil {
					err = txerror.New(txerror.ErrSinkFailure, "cannot close output file", cerr.Error())
				}
			}()
			return processFile(cmd.Context(), app, args[0], out)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "./txengine.json", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.format, "format", config.DEFAULT_OUTPUT_FORMAT, "Output format (csv, json, table)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", config.DEFAULT_LOG_LEVEL, "Log level written to stderr")
	rootCmd.PersistentFlags().BoolVar(&flags.allowRedispute, "allow-redispute", true, "Allow resolved transactions to be disputed again")
	rootCmd.PersistentFlags().BoolVar(&flags.disputeWithdrawals, "dispute-withdrawals", false, "Allow withdrawals to be disputed")
	rootCmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the snapshot to a file instead of stdout")

	rootCmd.PersistentPreRunE = preRun(app, flags)

	rootCmd.AddCommand(configCommands(app))

	return &TxEngine{cmd: rootCmd}
}

// executeCLI runs the root command and exits with a status derived from the error.
func (w TxEngine) executeCLI() {
	if err := w.cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(txerror.MapErrorToExitCode(err))
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
