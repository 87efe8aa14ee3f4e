package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a query against the dataset without the server",
}

var queryBrandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List distinct makes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		brands, err := engine.Brands()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(brands, "\n"))
		return nil
	},
}

var queryModelsCmd = &cobra.Command{
	Use:   "models <brand>",
	Short: "List models sold under a make",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		models, err := engine.BrandModels(args[0])
		if err != nil {
			return err
		}
		if len(models) == 0 {
			return fmt.Errorf("no models found for %s", args[0])
		}
		fmt.Println(strings.Join(models, "\n"))
		return nil
	},
}

var queryStatesCmd = &cobra.Command{
	Use:   "states",
	Short: "List states present in the dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		states, err := engine.States()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(states, "\n"))
		return nil
	},
}

var queryCountCmd = &cobra.Command{
	Use:   "count <state>",
	Short: "Count vehicles registered in a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		n, err := engine.StateEVCount(args[0])
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	queryCmd.AddCommand(queryBrandsCmd)
	queryCmd.AddCommand(queryModelsCmd)
	queryCmd.AddCommand(queryStatesCmd)
	queryCmd.AddCommand(queryCountCmd)
}

func newEngine() (*query.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return query.New(dataset.NewLoader(cfg.DataRoot), cfg.DatasetFile), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
