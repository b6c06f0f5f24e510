package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/alloctrend/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or write the default configuration",
	RunE:  runConfig,
}

var cfgOutPath string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&cfgOutPath, "out", "o", "", "write default config to this file instead of stdout")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	if cfgOutPath != "" {
		if err := cfg.SaveToFile(cfgOutPath); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", cfgOutPath)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
