package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/dbbuddy/internal/config"
)

const version = "1.0.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "dbbuddy [accessions or search terms...]",
	Short: "Search and retrieve records from public sequence databases",
	Long: `dbbuddy classifies accession numbers and free-text search terms, then
retrieves summaries or full sequence records from UniProt, NCBI
(GenBank/RefSeq) and Ensembl. Each argument may be raw text or a file path;
with no arguments input is read from stdin. Without a mode flag the live
shell is opened.`,
	Args:          cobra.ArbitraryArgs,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	bindRunFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
