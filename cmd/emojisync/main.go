package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/yuin/goldmark"

	"emojisync/internal/cache"
	"emojisync/internal/config"
	"emojisync/internal/download"
	"emojisync/internal/provider"
	"emojisync/internal/publish"
	"emojisync/internal/render"
	"emojisync/internal/sync"
	"emojisync/pkg/utils"
	"emojisync/pkg/version"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:                 "emojisync",
		Usage:                "Sync custom emojis from chat platforms to your docs",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "Sync emojis from configured providers",
				Flags: []cli.Flag{
					configFlag(),
					providerFlag("Only sync specific provider namespace"),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Force re-download even if cached",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Show what would be synced without actually syncing",
					},
				},
				Action: runSync,
			},
			{
				Name:  "list",
				Usage: "List available emojis",
				Flags: []cli.Flag{
					configFlag(),
					providerFlag("Filter by provider namespace"),
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Search emoji names",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format (text or json)",
					},
				},
				Action: runList,
			},
			{
				Name:  "validate",
				Usage: "Validate emoji configuration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "check-env",
						Usage: "Check environment variables",
					},
					&cli.BoolFlag{
						Name:  "test-providers",
						Usage: "Test provider connections",
					},
				},
				Action: runValidate,
			},
			{
				Name:  "cache",
				Usage: "Show cache information",
				Flags: []cli.Flag{
					configFlag(),
					providerFlag("Show info for specific provider"),
				},
				Action: runCache,
			},
			{
				Name:  "clean",
				Usage: "Remove cached and published emoji assets",
				Flags: []cli.Flag{
					configFlag(),
					providerFlag("Only clean specific provider namespace"),
					&cli.BoolFlag{
						Name:  "stale",
						Usage: "Only remove entries older than the cache TTL",
					},
				},
				Action: runClean,
			},
			{
				Name:      "render",
				Usage:     "Render a markdown file with emoji shortcodes replaced",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "base-path",
						Value: "/",
						Usage: "Base path prepended to emoji asset URLs",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write HTML to file instead of stdout",
					},
				},
				Action: runRender,
			},
			{
				Name:      "init",
				Usage:     "Create a default configuration file",
				ArgsUsage: "[PATH]",
				Action:    runInit,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSync(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if missing := config.MissingEnv(cfg); len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	providers, err := selectProviders(cfg, c.String("provider"))
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	manager := sync.New(cfg.Cache, cfg.Emojis, publisher, logger)

	start := time.Now()
	totalSynced := 0
	totalCached := 0
	totalErrors := 0

	for _, pc := range providers {
		fmt.Printf("Syncing %s (namespace: %s)...\n", pc.Type, pc.Namespace)

		if c.Bool("dry-run") {
			fmt.Println("  [DRY RUN] Would sync emojis")
			continue
		}

		p, err := buildProvider(pc, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
			totalErrors++
			continue
		}

		progress, finish := progressBar(pc.Namespace)
		result := manager.Sync(c.Context, p, c.Bool("force"), progress)
		finish()

		fmt.Printf("  ✓ Synced %d, cached %d, skipped %d\n", result.Synced, result.Cached, result.Skipped)

		totalSynced += result.Synced
		totalCached += result.Cached
		totalErrors += len(result.Errors)

		if len(result.Errors) > 0 {
			fmt.Printf("  ⚠ %d errors occurred\n", len(result.Errors))
			for i, msg := range result.Errors {
				if i == 5 {
					fmt.Printf("    ... and %d more\n", len(result.Errors)-5)
					break
				}
				fmt.Printf("    - %s\n", msg)
			}
		}
	}

	fmt.Printf("\nTotal: %d synced, %d cached, %d errors in %s\n",
		totalSynced, totalCached, totalErrors, utils.FormatDuration(time.Since(start)))
	return nil
}

func runList(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if missing := config.MissingEnv(cfg); len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	providers := cfg.EnabledProviders()
	if ns := c.String("provider"); ns != "" {
		providers = filterByNamespace(providers, ns)
	}

	search := strings.ToLower(c.String("search"))
	allEmojis := make(map[string]map[string]string)
	var order []string

	for _, pc := range providers {
		p, err := buildProvider(pc, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		emojis, err := p.Fetch(c.Context)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching from %s: %v\n", pc.Namespace, err)
			continue
		}

		names := make(map[string]string, len(emojis))
		for name, emoji := range emojis {
			if search != "" && !strings.Contains(strings.ToLower(name), search) {
				continue
			}
			names[config.FormatName(cfg.Emojis.PrefixFormat, pc.Namespace, name)] = emoji.URL
		}
		allEmojis[pc.Namespace] = names
		order = append(order, pc.Namespace)
	}

	if c.String("format") == "json" {
		payload, err := json.MarshalIndent(allEmojis, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(payload))
		return nil
	}

	for _, namespace := range order {
		names := allEmojis[namespace]
		fmt.Printf("\n%s (%d emojis):\n", namespace, len(names))

		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		for i, name := range sorted {
			if i == 50 {
				fmt.Printf("  ... and %d more\n", len(sorted)-50)
				break
			}
			fmt.Printf("  :%s:\n", name)
		}
	}
	return nil
}

func runValidate(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("✗ configuration error: %v", err)
	}
	fmt.Printf("✓ Configuration file is valid: %s\n", configPath)

	providers := cfg.EnabledProviders()
	fmt.Printf("✓ Found %d enabled provider(s)\n", len(providers))
	for _, p := range providers {
		fmt.Printf("  - %s (namespace: %s)\n", p.Type, p.Namespace)
	}

	if c.Bool("check-env") {
		fmt.Println("\nChecking environment variables...")
		if missing := config.MissingEnv(cfg); len(missing) > 0 {
			return fmt.Errorf("✗ missing variables: %s", strings.Join(missing, ", "))
		}
		fmt.Println("✓ All required environment variables are set")
	}

	if c.Bool("test-providers") {
		fmt.Println("\nTesting provider connections...")
		for _, pc := range providers {
			p, err := buildProvider(pc, cfg, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", pc.Namespace, err)
				continue
			}
			count, err := p.Validate(c.Context)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", pc.Namespace, err)
				continue
			}
			fmt.Printf("✓ %s: Connection successful - found %d emojis\n", pc.Namespace, count)
		}
	}

	fmt.Println("\n✓ Validation complete")
	return nil
}

func runCache(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	providers := cfg.EnabledProviders()
	if ns := c.String("provider"); ns != "" {
		providers = filterByNamespace(providers, ns)
	}

	for _, pc := range providers {
		nsCache, err := cache.Open(cfg.Cache, pc.Namespace, logger)
		if err != nil {
			return fmt.Errorf("failed to open cache for %s: %v", pc.Namespace, err)
		}
		stats, err := nsCache.Stats()
		nsCache.Close()
		if err != nil {
			return fmt.Errorf("failed to read cache stats for %s: %v", pc.Namespace, err)
		}

		fmt.Printf("\n%s:\n", pc.Namespace)
		fmt.Printf("  Files: %d\n", stats.FileCount)
		fmt.Printf("  Size: %s\n", utils.FormatSize(stats.TotalBytes))
		fmt.Printf("  Location: %s\n", stats.Directory)
	}
	return nil
}

func runClean(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	providers, err := selectProviders(cfg, c.String("provider"))
	if err != nil {
		return err
	}

	total := 0
	if c.Bool("stale") {
		for _, pc := range providers {
			nsCache, err := cache.Open(cfg.Cache, pc.Namespace, logger)
			if err != nil {
				return fmt.Errorf("failed to open cache for %s: %v", pc.Namespace, err)
			}
			removed, err := nsCache.SweepStale()
			nsCache.Close()
			if err != nil {
				return fmt.Errorf("failed to sweep %s: %v", pc.Namespace, err)
			}
			fmt.Printf("%s: removed %d stale entries\n", pc.Namespace, removed)
			total += removed
		}
	} else {
		publisher, err := newPublisher(cfg, logger)
		if err != nil {
			return err
		}
		manager := sync.New(cfg.Cache, cfg.Emojis, publisher, logger)

		for _, pc := range providers {
			removed, err := manager.CleanNamespace(c.Context, pc.Namespace)
			if err != nil {
				return fmt.Errorf("failed to clean %s: %v", pc.Namespace, err)
			}
			fmt.Printf("%s: removed %d cached files\n", pc.Namespace, removed)
			total += removed
		}
	}

	fmt.Printf("\nTotal: %d files removed\n", total)
	return nil
}

func runRender(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("markdown file argument is required")
	}
	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", file, err)
	}

	idx, err := render.BuildIndex(cfg.Publish.Dir, c.String("base-path"),
		cfg.Emojis.PrefixFormat, cfg.Emojis.RequirePrefix, logger)
	if err != nil {
		return fmt.Errorf("failed to index published emojis: %v", err)
	}

	md := goldmark.New(goldmark.WithExtensions(render.NewExtension(idx)))
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return fmt.Errorf("failed to render markdown: %v", err)
	}

	if out := c.String("output"); out != "" {
		return os.WriteFile(out, buf.Bytes(), 0o644)
	}
	fmt.Print(buf.String())
	return nil
}

func runInit(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = config.DefaultConfigFile
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Printf("✓ Created configuration file: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file to add your providers")
	fmt.Println("2. Set environment variables (e.g., export SLACK_TOKEN=...)")
	fmt.Println("3. Run: emojisync sync")
	return nil
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   config.DefaultConfigFile,
		Usage:   "Path to emoji configuration file",
	}
}

func providerFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   usage,
	}
}

func newLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

func buildProvider(pc config.ProviderConfig, cfg *config.Config, logger *logrus.Logger) (provider.Provider, error) {
	creds := provider.Credentials{
		Token:  os.Getenv(pc.TokenEnv),
		Tenant: os.Getenv(pc.TenantEnv),
	}
	client := download.NewHTTPClient(cfg.Emojis.Timeout())
	return provider.New(pc, creds, client, logger)
}

func newPublisher(cfg *config.Config, logger *logrus.Logger) (publish.Publisher, error) {
	if cfg.Publish.Target == "s3" {
		s3 := cfg.Publish.S3
		return publish.NewS3(publish.S3Options{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			AccessKey: os.Getenv(s3.AccessKeyEnv),
			SecretKey: os.Getenv(s3.SecretKeyEnv),
			Secure:    s3.UseTLS(),
		}, logger)
	}
	return publish.NewDir(cfg.Publish.Dir, logger), nil
}

func selectProviders(cfg *config.Config, namespace string) ([]config.ProviderConfig, error) {
	providers := cfg.EnabledProviders()
	if namespace == "" {
		return providers, nil
	}
	filtered := filterByNamespace(providers, namespace)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("provider '%s' not found", namespace)
	}
	return filtered, nil
}

func filterByNamespace(providers []config.ProviderConfig, namespace string) []config.ProviderConfig {
	var filtered []config.ProviderConfig
	for _, p := range providers {
		if p.Namespace == namespace {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// progressBar adapts a terminal progress bar to the sync progress
// callback. The bar is created on the first call, once the emoji
// count is known.
func progressBar(namespace string) (download.ProgressFunc, func()) {
	var bar *pb.ProgressBar
	progress := func(name string, current, total int) {
		if bar == nil {
			bar = pb.New(total)
			bar.SetTemplate(`  {{string . "namespace"}} {{counters . }} {{bar . }} {{percent . }}`)
			bar.Set("namespace", namespace)
			bar.Start()
		}
		bar.SetCurrent(int64(current))
	}
	finish := func() {
		if bar != nil {
			bar.Finish()
		}
	}
	return progress, finish
}
