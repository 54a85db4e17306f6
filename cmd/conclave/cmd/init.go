package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize conclave in the current directory",
	Long: `Initialize conclave in the current directory.
Writes a commented default configuration under .conclave/.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing configuration")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	configPath := filepath.Join(cwd, ".conclave", "config.yaml")

	if initForce {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing config: %w", err)
		}
	}

	written, err := config.WriteDefault(configPath)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if !written {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	fmt.Println("Initialized conclave in", cwd)
	fmt.Println("Configuration file: .conclave/config.yaml")
	fmt.Println("Run 'conclave doctor' to verify setup")
	return nil
}
