// Package main provides the stillpoint command-line entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/stillpoint/internal/app/catalog"
	"github.com/osa030/stillpoint/internal/app/completion"
	"github.com/osa030/stillpoint/internal/app/filter"
	"github.com/osa030/stillpoint/internal/app/render"
	"github.com/osa030/stillpoint/internal/app/session"
	"github.com/osa030/stillpoint/internal/infra/config"
	"github.com/osa030/stillpoint/internal/infra/logger"
	"github.com/osa030/stillpoint/internal/infra/store"
)

var (
	app        = kingpin.New("stillpoint", "Timed multi-phase meditation sessions")
	configPath = app.Flag("config", "Path to config file").Default("config/stillpoint.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// list command
	listCmd = app.Command("list", "List available practices").Default()

	// run command
	runCmd      = app.Command("run", "Run a practice session")
	runPractice = runCmd.Arg("practice", "Practice id").Required().String()
	runRepeat   = runCmd.Flag("repeat", "Number of consecutive sessions").Default("1").Int()
	runLocale   = runCmd.Flag("locale", "Instruction locale (overrides config)").String()

	// history command
	historyCmd   = app.Command("history", "Show completed sessions")
	historyLimit = historyCmd.Flag("limit", "Maximum number of sessions").Default("20").Int()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available catalog filters")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "warn",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Debug().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	switch command {
	case listCmd.FullCommand():
		err = list(ctx, cfg)
	case runCmd.FullCommand():
		err = run(ctx, cfg, *runPractice, *runRepeat)
	case historyCmd.FullCommand():
		err = history(ctx, cfg, *historyLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadCatalog builds the catalog from the built-in practices, the optional
// catalog file and the enabled filters.
func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	chain, err := filter.NewChainFromSettings(cfg.EnabledFilters())
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter config")
	}

	cfgs := catalog.BuiltinConfigs()
	if cfg.Catalog.Path != "" {
		overrides, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		cfgs = catalog.Merge(cfgs, overrides)
	}

	return catalog.New(ctx, cfgs, chain)
}

func list(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Available Practices:")
	for _, tl := range cat.Timelines() {
		pausable := ""
		if tl.Pausable() {
			pausable = " [pausable]"
		}
		fmt.Printf("  %-18s %-22s %s  %d phases%s\n",
			tl.ID(), tl.Title(), render.FormatClock(tl.TotalDuration()), tl.PhaseCount(), pausable)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, practiceID string, repeat int) error {
	if repeat < 1 {
		return errors.Newf("repeat must be at least 1: %d", repeat)
	}

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	tl, ok := cat.Get(practiceID)
	if !ok {
		return errors.Newf("unknown practice: %s (available: %s)", practiceID, strings.Join(cat.IDs(), ", "))
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	locale := cfg.Catalog.Locale
	if *runLocale != "" {
		locale = *runLocale
	}
	console := render.NewConsole(os.Stdout, locale)

	// Wait for shutdown signal alongside session events
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	inputCh := readCommands(os.Stdin)

	if tl.Pausable() {
		fmt.Println("Commands: p = pause, r = resume, q = quit")
	} else {
		fmt.Println("Commands: q = quit")
	}

	c := session.New(tl, session.Options{
		Resolution:  cfg.TickResolution(),
		Sink:        st,
		Reporter:    completion.LogReporter{},
		SinkTimeout: cfg.SinkTimeout(),
	})

	for i := 1; ; i++ {
		if repeat > 1 {
			fmt.Printf("\nSession %d/%d\n", i, repeat)
		}

		status, err := runSession(c, console, sigCh, inputCh)
		c.WaitSink()
		if err != nil {
			return err
		}
		if status != session.StatusComplete || i >= repeat {
			break
		}

		if c, err = c.Repeat(); err != nil {
			return err
		}
	}

	count, err := st.Count(ctx)
	if err == nil {
		fmt.Printf("Sessions logged: %d\n", count)
	}
	return nil
}

// runSession starts c and serves keyboard commands until it ends.
func runSession(c *session.Controller, console *render.Console, sigCh <-chan os.Signal, inputCh <-chan string) (session.Status, error) {
	unbind := console.Bind(c)
	defer unbind()

	if err := c.Start(); err != nil {
		return c.Status(), err
	}

	for {
		select {
		case <-c.Done():
			return c.Status(), nil
		case <-sigCh:
			zlog.Info().Msg("Received shutdown signal...")
			c.Cancel()
		case line, ok := <-inputCh:
			if !ok {
				// stdin closed; keep running until the session ends
				inputCh = nil
				continue
			}
			handleCommand(c, line)
		}
	}
}

func handleCommand(c *session.Controller, line string) {
	var err error
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "p", "pause":
		err = c.Pause()
	case "r", "resume":
		err = c.Resume()
	case "q", "quit":
		c.Cancel()
	case "":
	default:
		fmt.Printf("Unknown command: %s\n", line)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

// readCommands forwards input lines until r is exhausted.
func readCommands(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
	}()
	return ch
}

func history(ctx context.Context, cfg *config.Config, limit int) error {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	fmt.Println("Completed Sessions:")
	for _, rec := range records {
		fmt.Printf("  %s  %-18s %s (%d min)\n",
			rec.CompletedAt.Local().Format("2006-01-02 15:04"), rec.TimelineID,
			render.FormatClock(rec.TotalElapsed), rec.Minutes())
	}

	total, err := st.TotalElapsed(ctx, "")
	if err != nil {
		return err
	}
	fmt.Printf("Total practice time: %s\n", render.FormatClock(total))
	return nil
}

// printFilters prints available filters.
func printFilters() {
	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
