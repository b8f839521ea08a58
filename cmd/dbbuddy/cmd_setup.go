package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/dbbuddy/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "DatabaseBuddy Setup Wizard")
		fmt.Fprintln(out, "Press Enter to accept the default value shown in brackets.")
		fmt.Fprintln(out)

		// NCBI asks for a contact address on every E-utilities request.
		cfg.NCBI.Email = prompt(out, scanner, "NCBI contact email", cfg.NCBI.Email)
		cfg.NCBI.APIKey = prompt(out, scanner, "NCBI API key (optional)", cfg.NCBI.APIKey)

		cfg.OutFormat = prompt(out, scanner, "Default output format", cfg.OutFormat)

		maxStr := prompt(out, scanner, "Max concurrent UniProt requests", strconv.Itoa(cfg.UniProt.MaxConcurrent))
		if n, err := strconv.Atoi(maxStr); err == nil {
			cfg.UniProt.MaxConcurrent = n
		}

		cfg.Ensembl.Species = prompt(out, scanner, "Ensembl species for symbol searches", cfg.Ensembl.Species)

		if err := config.Validate(cfg); err != nil {
			return err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Configuration saved to", cfgPath)
		return nil
	},
}

func prompt(out io.Writer, scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
