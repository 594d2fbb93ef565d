// meshc is the command-line interface for compiling model projects.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "meshc",
		Short: "Model project compiler",
		Long:  "Compiles analytics model projects into dependency-graph manifests using isolated worker processes.",
	}

	rootCmd.PersistentFlags().String("worker", getEnvDefault("MESHC_WORKER_BINARY", "meshc-worker"), "Compile worker binary")

	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getEnvDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
