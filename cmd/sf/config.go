package main

import (
	"errors"
	"fmt"

	"github.com/matsen/searchforest/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get or set configuration values",
	Long: `Get or set values in .searchforest/config.yml.

Usage:
  sf config                          # Show all config
  sf config get tree.k1              # Get a value or section
  sf config set tree.k1 8            # Set a value
  sf config set embedding.provider hash

Environment variables override the file: SF_TREE_K1=8 sf tree ...`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  any    `json:"value"`
}

func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot, nil)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindRepository())
	if humanOutput {
		for _, key := range cfg.Keys() {
			v, _ := cfg.Get(key)
			fmt.Printf("%-28s %v\n", key, v)
		}
	} else {
		outputJSON(cfg)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindRepository())
	v, err := cfg.Get(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if humanOutput {
		fmt.Println(v)
	} else {
		outputJSON(map[string]any{args[0]: v})
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	key, value := args[0], args[1]
	if err := cfg.Set(key, value); err != nil {
		code := ExitConfigError
		if errors.Is(err, config.ErrUnknownKey) {
			code = ExitError
		}
		exitWithError(code, "%v", err)
	}
	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	stored, _ := cfg.Get(key)
	if humanOutput {
		fmt.Printf("Set %s = %v\n", key, stored)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: stored})
	}
	return nil
}
