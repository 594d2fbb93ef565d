package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meshworks/meshc/internal/compile"
	"github.com/meshworks/meshc/internal/project"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [project-dir]",
		Short: "Compile a model project",
		Long:  "Compiles the project in the given directory (default: current directory) and prints the manifest as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompile,
	}

	cmd.Flags().StringP("overrides", "f", "", "YAML file deep-merged over meshproject.yml")
	cmd.Flags().StringArray("var", nil, "Interpolation variable as key=value (repeatable)")
	cmd.Flags().Duration("timeout", 0, "Worker deadline (default 5s)")
	cmd.Flags().Bool("main", false, "Return the combined run result instead of the raw manifest")
	cmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")

	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	opts, err := optionsFromFlags(cmd, projectDir)
	if err != nil {
		return err
	}

	workerBinary, _ := cmd.Flags().GetString("worker")
	compiler := compile.New(workerBinary)

	mainResult, _ := cmd.Flags().GetBool("main")

	var result interface{}
	if mainResult {
		result, err = compiler.CompileMain(context.Background(), opts)
	} else {
		result, err = compiler.Compile(context.Background(), opts)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, out, 0644)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [project-dir]",
		Short: "Validate a project configuration",
		Long:  "Loads meshproject.yml, applies overrides and runs validation without spawning a worker.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().StringP("overrides", "f", "", "YAML file deep-merged over meshproject.yml")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	overrides, err := readOverrides(cmd)
	if err != nil {
		return err
	}

	proj, err := project.Load(projectDir, overrides)
	if err != nil {
		return err
	}
	if err := project.Validate(proj.Fields()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "project config is valid")
	return nil
}

func optionsFromFlags(cmd *cobra.Command, projectDir string) (compile.Options, error) {
	overrides, err := readOverrides(cmd)
	if err != nil {
		return compile.Options{}, err
	}

	vars, err := parseVars(cmd)
	if err != nil {
		return compile.Options{}, err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")

	return compile.Options{
		ProjectDir: projectDir,
		Overrides:  overrides,
		Vars:       vars,
		Timeout:    timeout,
	}, nil
}

func readOverrides(cmd *cobra.Command) (map[string]interface{}, error) {
	path, _ := cmd.Flags().GetString("overrides")
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var overrides map[string]interface{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}
	return overrides, nil
}

func parseVars(cmd *cobra.Command) (map[string]interface{}, error) {
	pairs, _ := cmd.Flags().GetStringArray("var")
	if len(pairs) == 0 {
		return nil, nil
	}

	vars := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
