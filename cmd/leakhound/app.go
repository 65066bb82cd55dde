package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/alert"
	"github.com/leakhound/leakhound/internal/config"
	"github.com/leakhound/leakhound/internal/fetch"
	"github.com/leakhound/leakhound/internal/log"
	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/scrape"
	"github.com/leakhound/leakhound/internal/scraper"
	"github.com/leakhound/leakhound/internal/store"
	"github.com/leakhound/leakhound/internal/tor"
)

// app bundles the storage-side components shared by every command:
// the open database, the scraper registry with builtins and persisted
// plugins loaded, and the alert matcher wired to the leak hook.
//
// Commands that fetch additionally build the Tor and fetch stack via
// buildRunner; commands that only read or write the store do not touch
// the network at all.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *scraper.Registry
	plugins  *scraper.PluginManager
	matcher  *alert.Matcher
}

// buildAppConfig assembles the Config from persistent flags and the
// optional YAML configuration file. An explicitly given config path
// must exist; otherwise a missing file just means defaults.
func buildAppConfig(cmd *cobra.Command) (*config.Config, *config.File, error) {
	cfg := config.NewConfig()

	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	var file *config.File
	path, err := config.FindConfigFile(explicit)
	switch {
	case err == nil:
		file, err = config.LoadConfigFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case errors.Is(err, config.ErrConfigNotFound) && explicit != "":
		return nil, nil, fmt.Errorf("configuration file not found: %s", explicit)
	case errors.Is(err, config.ErrConfigNotFound):
		// Defaults only.
	default:
		return nil, nil, err
	}

	if dataDir, err := cmd.Flags().GetString("data-dir"); err != nil {
		return nil, nil, err
	} else if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, file, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// openApp opens the store and builds the registry, plugin manager, and
// alert matcher. Targets declared in the config file are seeded before
// the function returns.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, file, err := buildAppConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	opts := store.DefaultOptions()
	opts.DefaultSearchQuota = cfg.SearchQuota
	st, err := store.Open(cfg.DataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	registry := scraper.NewRegistry()
	for _, s := range builtinScrapers() {
		if err := registry.Register(s); err != nil {
			_ = st.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("failed to register builtin scraper: %w", err)
		}
	}

	plugins := scraper.NewPluginManager(registry, cfg.ResolvedPluginDir(), logger)
	if err := plugins.LoadDir(); err != nil {
		logger.Warn("failed to load persisted plugins", "error", err)
	}

	matcher := alert.NewMatcher(st, alert.NewLogNotifier(logger), logger)
	st.SetLeakHook(matcher.OnLeak)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: registry,
		plugins:  plugins,
		matcher:  matcher,
	}

	if file != nil {
		if err := a.seedTargets(ctx, file); err != nil {
			_ = st.Close() //nolint:errcheck // Best effort cleanup
			return nil, err
		}
	}
	return a, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}

// builtinScrapers returns the compiled-in scraper plugins.
func builtinScrapers() []scraper.Scraper {
	return []scraper.Scraper{
		scraper.NewRansomHouse(),
		scraper.NewPlayNews(),
		scraper.NewAkira(),
		scraper.NewTelegram(),
		scraper.NewGeneric(),
	}
}

// seedTargets upserts the config file's target entries so editing the
// file and restarting updates stored targets instead of duplicating
// them. Extra URLs already registered elsewhere fail the seed; they
// indicate two targets claiming the same page.
func (a *app) seedTargets(ctx context.Context, file *config.File) error {
	seeds, err := file.SeedTargets()
	if err != nil {
		return err
	}

	for _, seed := range seeds {
		target := seed.Target
		if err := validateOnionURL(target.URL); err != nil {
			return fmt.Errorf("target %q: %w", target.Name, err)
		}
		for _, url := range seed.ExtraURLs {
			if err := validateOnionURL(url); err != nil {
				return fmt.Errorf("target %q: %w", target.Name, err)
			}
		}
		if err := a.store.UpsertTargetByName(ctx, &target); err != nil {
			return fmt.Errorf("failed to seed target %q: %w", target.Name, err)
		}
		for _, url := range seed.ExtraURLs {
			err := a.store.AddTargetURL(ctx, target.ID, url)
			if err != nil && !errors.Is(err, store.ErrDuplicateURL) {
				return fmt.Errorf("failed to register url for %q: %w", target.Name, err)
			}
		}
		a.logger.Debug("seeded target", "name", target.Name, "id", target.ID)
	}
	return nil
}

// validateOnionURL rejects onion URLs whose address fails checksum
// validation. A mistyped address would otherwise sit in the schedule
// failing every run.
func validateOnionURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if strings.HasSuffix(host, tor.OnionSuffix) && !tor.IsValidV3Address(host) {
		return fmt.Errorf("invalid onion address %q", host)
	}
	return nil
}

// fetchStack is the network side of the pipeline: the Tor client, the
// optional embedded daemon, and the run orchestrator built on them.
type fetchStack struct {
	client   *tor.Client
	embedded *tor.EmbeddedTor
	runner   *scrape.Runner
}

// buildRunner brings up the Tor connection and the fetch engine and
// returns the run orchestrator. The caller must call close when done;
// it stops the embedded daemon if one was started.
func (a *app) buildRunner(ctx context.Context) (*fetchStack, func(), error) {
	cfg := a.cfg

	var client *tor.Client
	var embedded *tor.EmbeddedTor
	controlAddr := cfg.TorControlAddress

	if cfg.UseExternalTor {
		var err error
		client, err = tor.NewClient(cfg.TorProxyAddress, cfg.FetchTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}

		status := client.CheckConnection(ctx)
		if status != tor.ProxyStatusOK {
			return nil, nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.TorProxyAddress)
		}
		a.logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
	} else {
		fmt.Println("Starting embedded Tor daemon...")
		fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embedded = tor.NewEmbeddedTor(
			tor.WithStartupTimeout(cfg.TorStartupTimeout),
		)
		if err := embedded.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}

		var err error
		client, err = embedded.NewClient(cfg.FetchTimeout)
		if err != nil {
			_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		controlAddr = embedded.ControlAddr()

		a.logger.Info("embedded Tor daemon started",
			"socksAddr", embedded.SocksAddr(),
			"controlAddr", embedded.ControlAddr(),
		)
	}

	cleanup := func() {
		if embedded != nil {
			a.logger.Info("stopping embedded Tor daemon...")
			if err := embedded.Stop(); err != nil {
				a.logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
	}

	engineOpts := []fetch.EngineOption{
		fetch.WithLogger(a.logger),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRenderer(fetch.NewChromeRenderer(client.ProxyAddress())),
	}

	// Identity renewal is best-effort: without a reachable control port
	// retries still happen, just over the same circuit.
	if controlAddr != "" {
		var ctrlOpts []tor.ControllerOption
		if cfg.TorControlPassword != "" {
			ctrlOpts = append(ctrlOpts, tor.WithControlPassword(cfg.TorControlPassword))
		}
		controller, err := tor.NewController(controlAddr, ctrlOpts...)
		if err != nil {
			a.logger.Warn("tor control port unavailable, identity renewal disabled",
				"address", controlAddr, "error", err)
		} else {
			engineOpts = append(engineOpts, fetch.WithRenewer(controller))
		}
	}

	engine := fetch.NewEngine(client, engineOpts...)
	retry := model.RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	}
	runner := scrape.NewRunner(a.store, a.registry, engine, retry, cfg.FetchTimeout, a.logger)

	return &fetchStack{client: client, embedded: embedded, runner: runner}, cleanup, nil
}
