package main

import (
	"github.com/spf13/cobra"

	"github.com/evdata/evdata/internal/report"
)

var reportDelay bool

var reportCmd = &cobra.Command{
	Use:   "report <brand> <model>",
	Short: "Generate a detailed report in the foreground",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		var opts []report.Option
		if !reportDelay {
			opts = append(opts, report.WithDelay(0))
		}
		r, err := report.NewGenerator(engine, opts...).Generate(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(r)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportDelay, "simulate-delay", false, "sleep like the background task does")
}
