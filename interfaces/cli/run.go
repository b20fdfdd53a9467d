package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fieldteam/orchestrator/application"
	domainconfig "github.com/fieldteam/orchestrator/domain/config"
	domainsentinel "github.com/fieldteam/orchestrator/domain/sentinel"
	domainsession "github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/bus"
	infraconfig "github.com/fieldteam/orchestrator/infrastructure/config"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/sentinel"
	infrasession "github.com/fieldteam/orchestrator/infrastructure/session"
	"github.com/fieldteam/orchestrator/infrastructure/telemetry"
)

// runOptions holds options for the run command.
type runOptions struct {
	configPath string
	task       string
	maxSteps   int
	timeout    time.Duration
	verbose    bool
	jsonOutput bool
	dryRun     bool
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run the orchestrator on a task",
		Long: `Run the orchestrator using the provided configuration and task.

The orchestrator plans a sequence of steps against the configured team,
dispatches each step, judges progress against the ledger, replans on
stalls, and asks the human operator when the plan calls for it, until it
reaches a terminal phase (done or failed).

Examples:
  orchestrator run -c config.yaml "Summarize last week's incidents"
  orchestrator run -c config.yaml --timeout 10m --max-steps 25 "Deploy v2"
  orchestrator run -c config.yaml --dry-run "Test task"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.task = args[0]
			}
			return a.runOrchestrator(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum plan steps (overrides config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Session timeout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the final result as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and build configuration without executing")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// runOrchestrator builds and runs an Orchestrator from the given options.
func (a *App) runOrchestrator(ctx context.Context, opts *runOptions) error {
	loader := infraconfig.NewLoader()
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.maxSteps > 0 {
		cfg.Orchestrator.MaxSteps = opts.maxSteps
	}

	builder := infraconfig.NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build orchestrator configuration: %w", err)
	}

	if opts.verbose {
		fmt.Fprintf(a.stdout, "Configuration loaded: %s v%s\n", cfg.Name, cfg.Version)
		fmt.Fprintf(a.stdout, "Max steps: %d\n", result.MaxSteps)
		fmt.Fprintf(a.stdout, "Team size: %d\n", len(cfg.Team.Members))
		fmt.Fprintf(a.stdout, "\n")
	}

	if opts.dryRun {
		fmt.Fprintf(a.stdout, "Configuration validated successfully.\n")
		if opts.task != "" {
			fmt.Fprintf(a.stdout, "Task: %s\n", opts.task)
		}
		return nil
	}

	task := opts.task
	if task == "" {
		task = cfg.Orchestrator.DefaultTask
	}
	if task == "" {
		return fmt.Errorf("no task specified (use argument or set orchestrator.default_task in config)")
	}

	if result.Protocol == nil {
		return fmt.Errorf("no llm provider configured (set llm.provider in config)")
	}

	registry := dispatch.NewRegistry()
	if !registry.Has(team.UserProxyName) {
		if err := registry.Register(dispatch.NewConsoleUserProxy(a.stdin, a.stdout)); err != nil {
			return fmt.Errorf("failed to register console user proxy: %w", err)
		}
	}
	dispatcher := dispatch.New(registry, result.ResilienceConfig)

	store, closeStore, err := buildSessionStore(cfg.Persistence)
	if err != nil {
		return fmt.Errorf("failed to build session store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	var sched *sentinel.Scheduler
	if result.SentinelEnabled {
		sentinelStore, closeSentinel, err := buildSentinelStore(cfg.Persistence)
		if err != nil {
			return fmt.Errorf("failed to build sentinel store: %w", err)
		}
		if closeSentinel != nil {
			defer closeSentinel()
		}
		sched = sentinel.NewScheduler(result.Protocol, dispatcher, sentinelStore, nil)
	}

	eventBus := bus.New()

	defer func() { _ = result.Telemetry.Shutdown(context.Background()) }()
	metrics := telemetry.NewOrchestratorMetrics(result.Telemetry.Meter())

	sess := domainsession.New(uuid.New().String(), task, memberNames(cfg.Team))
	if err := store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	orch := application.New(application.Config{
		Session:               sess,
		Team:                  result.Team,
		Budget:                result.Budget,
		Protocol:              result.Protocol,
		Dispatcher:            dispatcher,
		Sentinel:              sched,
		Publisher:             eventBus,
		Approval:              result.Approval,
		Transitions:           result.Transitions,
		Store:                 store,
		Tracer:                result.Telemetry.Tracer(),
		Metrics:               metrics,
		MaxSteps:              result.MaxSteps,
		CooperativePlanning:   result.CooperativePlanning,
		AutonomousExecution:   result.AutonomousExecution,
		AllowFollowUpInput:    result.AllowFollowUpInput,
		AllowedWebsites:       result.AllowedWebsites,
		Memory:                result.Memory,
		RetrieveRelevantPlans: result.RetrieveRelevantPlans,
		MemoryControllerKey:   result.MemoryControllerKey,
	})

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if opts.verbose {
		fmt.Fprintf(a.stdout, "Starting orchestrator run...\nTask: %s\n\n", task)
	}

	start := time.Now()
	answer, runErr := orch.Run(ctx)
	duration := time.Since(start)

	if opts.jsonOutput {
		return a.printJSONResult(sess, answer, duration, runErr)
	}
	return a.printTextResult(sess, answer, duration, runErr)
}

func (a *App) printJSONResult(sess *domainsession.State, answer string, duration time.Duration, runErr error) error {
	output := map[string]any{
		"session_id": sess.ID,
		"phase":      string(sess.Phase),
		"duration":   duration.String(),
	}
	if answer != "" {
		output["result"] = answer
	}
	if runErr != nil {
		output["error"] = runErr.Error()
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func (a *App) printTextResult(sess *domainsession.State, answer string, duration time.Duration, runErr error) error {
	fmt.Fprintf(a.stdout, "Session %s\n", sess.ID)
	fmt.Fprintf(a.stdout, "  Phase: %s\n", sess.Phase)
	fmt.Fprintf(a.stdout, "  Duration: %s\n", duration)

	if runErr != nil {
		fmt.Fprintf(a.stdout, "  Status: FAILED\n")
		fmt.Fprintf(a.stdout, "  Error: %s\n", runErr)
		return nil
	}

	fmt.Fprintf(a.stdout, "  Status: DONE\n")
	if answer != "" {
		fmt.Fprintf(a.stdout, "  Result: %s\n", answer)
	}
	return nil
}

func memberNames(team domainconfig.TeamConfig) []string {
	names := make([]string, 0, len(team.Members))
	for _, m := range team.Members {
		names = append(names, m.Name)
	}
	return names
}

// sessionStore is the subset of domain/session.Store the run command
// needs: create the initial session and let the Orchestrator checkpoint
// it thereafter.
type sessionStore interface {
	Save(ctx context.Context, s *domainsession.State) error
	Update(ctx context.Context, s *domainsession.State) error
}

// buildSessionStore selects the session.Store backend per the
// configuration's persistence settings.
func buildSessionStore(cfg domainconfig.PersistenceConfig) (sessionStore, func(), error) {
	if cfg.Backend == "redis" {
		redisStore, err := infrasession.NewRedisStore(infrasession.RedisConfig{
			Address: cfg.RedisAddr,
			DB:      cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisStore, func() { _ = redisStore.Close() }, nil
	}
	return infrasession.NewMemoryStore(), nil, nil
}

// buildSentinelStore selects the domain/sentinel.Store backend per the
// configuration's persistence settings.
func buildSentinelStore(cfg domainconfig.PersistenceConfig) (domainsentinel.Store, func(), error) {
	if cfg.Backend == "redis" {
		redisStore, err := sentinel.NewRedisStore(sentinel.RedisConfig{
			Address: cfg.RedisAddr,
			DB:      cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisStore, func() { _ = redisStore.Close() }, nil
	}
	return sentinel.NewMemoryStore(), nil, nil
}
