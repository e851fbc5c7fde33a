package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbehnke/bridge-harness/pkg/bridgeapp"
	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/bridgetest"
	"github.com/dbehnke/bridge-harness/pkg/config"
	"github.com/dbehnke/bridge-harness/pkg/logger"
	"github.com/dbehnke/bridge-harness/pkg/web"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bridge-harness",
		Short: "Mock Bridge backend for tests and local development",
		Long: `bridge-harness registers in-memory participant and activity managers
in place of the Bridge SDK singletons and serves them over a small REST and
WebSocket API.`,
		Version:       fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mock backend",
		RunE:  runServe,
	}
	serveCmd.Flags().StringP("config", "c", "", "Configuration file path (default: ./harness.yaml)")
	serveCmd.Flags().String("host", "", "Server host (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().StringP("resources", "r", "", "Fixture directory (overrides config)")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging (overrides config)")

	checkCmd := &cobra.Command{
		Use:   "check <AppConfig.json>",
		Short: "Decode and validate an app config fixture",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	rootCmd.AddCommand(serveCmd, checkCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	hostOverride, _ := cmd.Flags().GetString("host")
	portOverride, _ := cmd.Flags().GetInt("port")
	resourcesOverride, _ := cmd.Flags().GetString("resources")
	debugOverride, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if hostOverride != "" {
		cfg.Server.Host = hostOverride
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}
	if resourcesOverride != "" {
		cfg.Harness.ResourcesDir = resourcesOverride
	}
	if debugOverride {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		File:        cfg.Logging.File,
		MaxSize:     cfg.Logging.MaxSize,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAge,
		Development: cfg.Logging.Level == "debug",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("bridge-harness starting",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
		logger.String("resources_dir", cfg.Harness.ResourcesDir))

	h := bridgetest.NewHarness(os.DirFS(cfg.Harness.ResourcesDir),
		bridgetest.WithParticipant(participantFromConfig(cfg.Participant)),
		bridgetest.WithAppConfigFile(cfg.Harness.AppConfigFile),
		bridgetest.WithLogger(log))

	if err := seedSchedules(h.ActivityManager, cfg.Schedules, time.Now(), log); err != nil {
		return err
	}

	if err := h.SetupBridgeIfNeeded(); err != nil {
		return fmt.Errorf("failed to set up app: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
		cancel()
	}()

	server := web.NewServer(cfg.Server, h.SDK, web.RealClock{}, log)
	if err := server.Start(ctx); err != nil {
		log.Error("Mock backend error", logger.Error(err))
		return err
	}

	return nil
}

// participantFromConfig overlays the configured fields on the default mock participant
func participantFromConfig(pc config.ParticipantConfig) *bridgesdk.StudyParticipant {
	p := bridgetest.DefaultMockParticipant()
	if pc.FirstName != "" {
		p.FirstName = pc.FirstName
	}
	if pc.LastName != "" {
		p.LastName = pc.LastName
	}
	if pc.Email != "" {
		p.Email = pc.Email
	}
	if pc.Phone != "" {
		p.Phone = &bridgesdk.Phone{Number: pc.Phone, RegionCode: "US"}
	}
	if pc.ExternalID != "" {
		p.ExternalID = pc.ExternalID
	}
	if len(pc.DataGroups) > 0 {
		p.DataGroups = append([]string(nil), pc.DataGroups...)
	}
	return p
}

// seedSchedules expands each configured cron schedule from start over its day window
func seedSchedules(am *bridgetest.MockActivityManager, schedules []config.ScheduleConfig, start time.Time, log *logger.Logger) error {
	for _, s := range schedules {
		activityType := bridgesdk.ActivityTypeTask
		if s.Type == "survey" {
			activityType = bridgesdk.ActivityTypeSurvey
		}

		end := start.AddDate(0, 0, s.Days)
		created, err := am.CreateCronSchedules(s.Identifier, activityType, s.Cron, start, end, s.Expires)
		if err != nil {
			return fmt.Errorf("failed to seed schedule %s: %w", s.Identifier, err)
		}

		log.Info("Seeded schedules",
			logger.String("identifier", s.Identifier),
			logger.String("cron", s.Cron),
			logger.Time("from", start),
			logger.Time("to", end),
			logger.Int("count", len(created)))
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	appConfig, err := bridgesdk.NewObjectManager().DecodeAppConfig(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "label:   %s\n", appConfig.Label)
	if appConfig.Version != 0 {
		fmt.Fprintf(out, "version: %d\n", appConfig.Version)
	}

	// Run the same setup the app does so group decoding errors surface here
	overrides := bridgesdk.NewOverrides()
	overrides.SetTestAppConfig(appConfig)
	app := bridgeapp.New(logger.Nop())
	if err := app.Configuration.SetupBridge(bridgesdk.New(bridgesdk.WithOverrides(overrides))); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	groups := app.Configuration.ActivityGroups()
	fmt.Fprintf(out, "activity groups: %d\n", len(groups))
	for _, g := range groups {
		fmt.Fprintf(out, "  - %s: %s\n", g.Identifier, strings.Join(g.ActivityIdentifiers, ", "))
	}
	return nil
}
