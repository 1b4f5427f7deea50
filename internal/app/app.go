// Package app is the composition root: it constructs every service
// explicitly and hands them to the entry points. No component is a global
// singleton; everything flows through this Application instance.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/netposture/netposture/internal/adapters/cache"
	"github.com/netposture/netposture/internal/adapters/diagweb"
	"github.com/netposture/netposture/internal/adapters/session"
	"github.com/netposture/netposture/internal/adapters/storage"
	"github.com/netposture/netposture/internal/adapters/taxonomy"
	"github.com/netposture/netposture/internal/config"
	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
	"github.com/netposture/netposture/internal/core/scanner"
	"github.com/netposture/netposture/internal/core/verify"
	"github.com/netposture/netposture/internal/telemetry"
)

// Application wires the matching engine to its adapters.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *storage.Store
	Cache    ports.AdvisoryCache
	Taxonomy ports.TaxonomyProvider
	Scanner  *scanner.Scanner
	Verifier *verify.Verifier
	Pool     *verify.Pool
	Sessions *session.Registry
	Diag     *diagweb.Server
}

// New bootstraps the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{Config: cfg, Logger: logger}

	if err := app.bootstrap(); err != nil {
		app.Close()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	store, err := storage.New(app.Config.DBPath)
	if err != nil {
		return err
	}
	app.Store = store

	advisoryCache, err := app.buildCache()
	if err != nil {
		return err
	}
	app.Cache = advisoryCache

	app.Taxonomy, err = app.buildTaxonomy()
	if err != nil {
		return err
	}

	app.Scanner = scanner.New(store, advisoryCache,
		scanner.WithConfidenceThreshold(app.Config.ConfidenceThreshold),
		scanner.WithLogger(app.Logger),
	)
	app.Verifier = verify.New(
		verify.WithLogger(app.Logger),
		verify.WithEvidenceCap(app.Config.EvidenceCap),
	)

	app.Sessions = session.NewRegistry()
	app.Sessions.Register("ssh", &session.SSHDialer{
		Timeout: time.Duration(app.Config.SSHTimeoutSec) * time.Second,
	})
	app.Sessions.Register("telnet", &session.TelnetDialer{
		Timeout: time.Duration(app.Config.TelnetTimeoutSec) * time.Second,
	})
	app.Sessions.Register("replay", &session.ReplayDialer{Script: demoScript()})

	app.Pool = verify.NewPool(app.Verifier, app.Sessions, app.Config.VerifyWorkers, app.Logger)
	app.Diag = diagweb.New(app.Config.DiagAddr, store, advisoryCache, app.Logger)

	return nil
}

func (app *Application) buildCache() (ports.AdvisoryCache, error) {
	switch app.Config.CacheBackend {
	case "", "memory":
		return cache.NewMemory(), nil
	case "sqlite":
		return cache.NewSQLite(app.Config.CachePath)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedis(ctx, app.Config.RedisAddr, app.Config.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", app.Config.CacheBackend)
	}
}

func (app *Application) buildTaxonomy() (ports.TaxonomyProvider, error) {
	if _, err := os.Stat(app.Config.TaxonomyPath); os.IsNotExist(err) {
		app.Logger.Warn("taxonomy catalog not found, feature filtering disabled",
			"path", app.Config.TaxonomyPath)
		return emptyTaxonomy{}, nil
	}
	return taxonomy.LoadFile(app.Config.TaxonomyPath, app.Logger)
}

// emptyTaxonomy serves no labels, used when no catalog is configured.
type emptyTaxonomy struct{}

func (emptyTaxonomy) LabelsFor(domain.Platform) ([]domain.FeatureLabel, error) {
	return nil, nil
}

// Close releases held resources. Safe on a partially built application.
func (app *Application) Close() {
	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.Logger.Warn("closing advisory cache", "error", err)
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("closing vulnerability store", "error", err)
		}
	}
}

// RunScan executes one bulk scan from the configured parameters and writes
// the result as JSON to stdout.
func (app *Application) RunScan(ctx context.Context) error {
	platform := domain.Platform(app.Config.ScanPlatform)
	if !platform.Valid() {
		return fmt.Errorf("unknown platform %q", app.Config.ScanPlatform)
	}
	if app.Config.ScanVersion == "" {
		return fmt.Errorf("-version is required for -scan")
	}

	result, err := app.Scanner.ScanDevice(ctx, scanner.ScanRequest{
		Platform:      platform,
		Version:       app.Config.ScanVersion,
		HardwareModel: app.Config.ScanHardware,
		Labels:        app.Config.ScanLabels,
	})
	if err != nil {
		return err
	}
	return writeJSON(result)
}

// RunVerify verifies the configured advisory against the configured target
// and writes the result as JSON to stdout.
func (app *Application) RunVerify(ctx context.Context) error {
	psirt, err := app.loadAdvisory()
	if err != nil {
		return err
	}

	target := domain.Target{
		Host:      app.Config.TargetHost,
		Port:      app.Config.TargetPort,
		Transport: app.Config.Transport,
		Username:  app.Config.Username,
		Password:  app.Config.Password,
	}
	if app.Config.Demo {
		target.Transport = "replay"
		if target.Host == "" {
			target.Host = "demo-device"
		}
	}
	if target.Host == "" {
		return fmt.Errorf("-host is required for -verify")
	}

	results := app.Pool.VerifyTargets(ctx, []domain.Target{target}, psirt)
	return writeJSON(results[0])
}

func (app *Application) loadAdvisory() (domain.PSIRTAdvisory, error) {
	var psirt domain.PSIRTAdvisory
	if app.Config.AdvisoryPath == "" {
		return psirt, fmt.Errorf("-advisory is required for -verify")
	}
	data, err := os.ReadFile(app.Config.AdvisoryPath)
	if err != nil {
		return psirt, fmt.Errorf("read advisory: %w", err)
	}
	if err := json.Unmarshal(data, &psirt); err != nil {
		return psirt, fmt.Errorf("parse advisory: %w", err)
	}
	if !psirt.Platform.Valid() {
		return psirt, fmt.Errorf("advisory has unknown platform %q", psirt.Platform)
	}
	app.enrichAdvisory(&psirt)
	return psirt, nil
}

// enrichAdvisory fills in config probes and show commands from the taxonomy
// catalog when the advisory names labels but carries no probes of its own.
func (app *Application) enrichAdvisory(psirt *domain.PSIRTAdvisory) {
	if len(psirt.ConfigPatterns) > 0 || len(psirt.Labels) == 0 {
		return
	}
	catalog, err := app.Taxonomy.LabelsFor(psirt.Platform)
	if err != nil || len(catalog) == 0 {
		return
	}

	byLabel := make(map[string]domain.FeatureLabel, len(catalog))
	for _, entry := range catalog {
		byLabel[entry.Label] = entry
	}

	var labels, patterns, commands []string
	for _, label := range psirt.Labels {
		entry, ok := byLabel[label]
		if !ok {
			continue
		}
		for _, pattern := range entry.ConfigRegex {
			labels = append(labels, label)
			patterns = append(patterns, pattern)
		}
		commands = append(commands, entry.ShowCmds...)
	}
	if len(patterns) == 0 {
		return
	}

	app.Logger.Info("advisory probes filled from taxonomy catalog",
		"advisory_id", psirt.AdvisoryID, "patterns", len(patterns))
	psirt.Labels = labels
	psirt.ConfigPatterns = patterns
	if len(psirt.ShowCommands) == 0 {
		psirt.ShowCommands = commands
	}
}

// RunServe keeps the diagnostics server up until the context ends.
func (app *Application) RunServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- app.Diag.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.Diag.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// demoScript backs the replay transport: an IOS-XE device in an affected
// train with SSH management configured.
func demoScript() session.Script {
	return session.Script{
		Hostname: "lab-edge-01",
		Version:  "17.3.5",
		Outputs: map[string]string{
			"show running-config": "hostname lab-edge-01\nip ssh version 2\nline vty 0 4\n transport input ssh\n",
			"show ip ssh":         "SSH Enabled - version 2.0\n",
			"show version":        "Cisco IOS XE Software, Version 17.3.5\n",
		},
	}
}
