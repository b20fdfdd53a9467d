package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/fieldteam/orchestrator/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate an orchestrator configuration file",
		Long: `Validate an orchestrator configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version, team)
  - Budget, transition, and approval policy shape
  - Persistence backend settings
  - Environment variable references (in strict mode)

Examples:
  orchestrator validate-config -c config.yaml
  orchestrator validate-config -c config.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing environment variables")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// validateConfig validates the configuration file and prints a summary.
func (a *App) validateConfig(opts *validateOptions) error {
	loaderOpts := []infraconfig.LoaderOption{infraconfig.WithValidation(true)}
	if opts.strict {
		loaderOpts = append(loaderOpts, infraconfig.WithStrictEnv(true))
	}

	loader := infraconfig.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	builder := infraconfig.NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	if cfg.Description != "" {
		fmt.Fprintf(a.stdout, "  Description: %s\n", cfg.Description)
	}

	fmt.Fprintf(a.stdout, "\nSummary:\n")
	fmt.Fprintf(a.stdout, "  Max steps: %d\n", result.MaxSteps)
	fmt.Fprintf(a.stdout, "  Sentinel enabled: %t\n", result.SentinelEnabled)
	fmt.Fprintf(a.stdout, "  Team members: %d\n", len(cfg.Team.Members))
	for _, m := range cfg.Team.Members {
		fmt.Fprintf(a.stdout, "    - %s%s\n", m.Name, approvalSuffix(m.RequiresApproval))
	}

	if len(cfg.Policy.Budgets) > 0 {
		fmt.Fprintf(a.stdout, "  Budgets:\n")
		for name, limit := range cfg.Policy.Budgets {
			fmt.Fprintf(a.stdout, "    - %s: %d\n", name, limit)
		}
	}
	if cfg.Policy.MaxReplans > 0 {
		fmt.Fprintf(a.stdout, "  Max replans: %d\n", cfg.Policy.MaxReplans)
	}
	if cfg.Policy.MaxStallsBeforeReplan > 0 {
		fmt.Fprintf(a.stdout, "  Max stalls before replan: %d\n", cfg.Policy.MaxStallsBeforeReplan)
	}

	fmt.Fprintf(a.stdout, "  LLM provider: %s\n", providerOrNone(cfg.LLM.Provider))
	fmt.Fprintf(a.stdout, "  Persistence backend: %s\n", cfg.Persistence.Backend)
	fmt.Fprintf(a.stdout, "  Telemetry exporter: %s\n", exporterOrNone(cfg.Telemetry.Exporter))
	_ = result.Telemetry.Shutdown(context.Background())

	return nil
}

func approvalSuffix(requiresApproval bool) string {
	if requiresApproval {
		return " (requires approval)"
	}
	return ""
}

func providerOrNone(provider string) string {
	if provider == "" {
		return "none (mock/scripted protocol required)"
	}
	return provider
}

func exporterOrNone(exporter string) string {
	if exporter == "" {
		return "none (disabled)"
	}
	return exporter
}
