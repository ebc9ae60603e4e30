package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/categorize"
	"github.com/nikbrunner/tidymark/internal/config"
	"github.com/nikbrunner/tidymark/internal/exporter"
	"github.com/nikbrunner/tidymark/internal/importer"
	"github.com/nikbrunner/tidymark/internal/oracle"
	"github.com/nikbrunner/tidymark/internal/organize"
	"github.com/nikbrunner/tidymark/internal/tui"
)

func main() {
	setupLogging()

	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "organize":
			runOrganize(hasFlag(os.Args[2:], "--headless"))
			return
		case "add":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: tidymark add <url> [title]\n")
				os.Exit(1)
			}
			title := ""
			if len(os.Args) >= 4 {
				title = os.Args[3]
			}
			runAdd(os.Args[2], title)
			return
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: tidymark import <file.html> [--categorize]\n")
				os.Exit(1)
			}
			runImport(os.Args[2], hasFlag(os.Args[3:], "--categorize"))
			return
		case "export":
			var outputPath string
			if len(os.Args) >= 3 {
				outputPath = os.Args[2]
			}
			runExport(outputPath)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	// No args - open the organize view
	runOrganize(false)
}

func printHelp() {
	help := `tidymark - automatic bookmark organizer

Usage:
  tidymark                       Open the organize view
  tidymark organize              Open the organize view
  tidymark organize --headless   Organize all bookmarks and exit
  tidymark add <url> [title]     Add a bookmark and auto-categorize it
  tidymark import <file.html>    Import a browser bookmark export
      [--categorize]             ...and categorize every imported bookmark
  tidymark export [path]         Export bookmarks to HTML
  tidymark help                  Show this help

Configuration:
  ~/.config/tidymark/config.yaml

Data Storage:
  ~/.config/tidymark/bookmarks.db
`
	fmt.Print(help)
}

func setupLogging() {
	level := slog.LevelWarn
	if os.Getenv("TIDYMARK_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// app bundles the wired-up components backing every subcommand.
type app struct {
	cfg      config.Config
	store    *bookmarks.SQLiteStore
	gateway  *categorize.Gateway
	pipeline *organize.Pipeline
	bulk     *organize.Organizer
}

func setup() (*app, error) {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath, err = config.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	store, err := bookmarks.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	host, err := buildHost(cfg.Oracle)
	if err != nil {
		store.Close()
		return nil, err
	}
	gateway := categorize.NewGateway(oracle.NewPool(host), categorize.Options{
		SingleAttempts: cfg.Oracle.SingleAttempts,
		BatchAttempts:  cfg.Oracle.BatchAttempts,
		RetryDelay:     cfg.RetryDelay(),
		SessionBudget:  cfg.Oracle.SessionBudget,
		TokenBuffer:    cfg.Oracle.TokenBuffer,
	})

	pipeline := organize.NewPipeline(store, gateway, cfg.Debounce())
	bulk := organize.NewOrganizer(store, gateway, pipeline.Placer(), cfg.Organize.BatchSize)

	return &app{
		cfg:      cfg,
		store:    store,
		gateway:  gateway,
		pipeline: pipeline,
		bulk:     bulk,
	}, nil
}

func (a *app) close() {
	a.gateway.Close()
	_ = a.store.Close()
}

func buildHost(cfg config.OracleConfig) (oracle.Host, error) {
	switch cfg.Provider {
	case "anthropic":
		var opts []oracle.AnthropicOption
		if cfg.Endpoint != "" {
			opts = append(opts, oracle.WithAnthropicEndpoint(cfg.Endpoint))
		}
		if cfg.Model != "" {
			opts = append(opts, oracle.WithAnthropicModel(cfg.Model))
		}
		return oracle.NewAnthropicHost(opts...), nil
	case "openai":
		var opts []oracle.OpenAIOption
		if cfg.Endpoint != "" {
			opts = append(opts, oracle.WithOpenAIEndpoint(cfg.Endpoint))
		}
		if cfg.Model != "" {
			opts = append(opts, oracle.WithOpenAIModel(cfg.Model))
		}
		return oracle.NewOpenAIHost(opts...), nil
	case "static":
		return oracle.NewStaticHost("static", nil), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

// runOrganize drives a bulk run, interactively by default.
func runOrganize(headless bool) {
	a, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if headless {
		report, err := a.bulk.OrganizeAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error organizing bookmarks: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Organized %d of %d bookmarks in %.1fs\n",
			report.Processed, report.Total, report.Duration.Seconds())
		return
	}

	app := tui.New(func() (organize.Report, error) {
		return a.bulk.OrganizeAll(context.Background())
	})
	if _, err := tea.NewProgram(app).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}

// runAdd creates a bookmark and lets the debounce pipeline categorize it.
func runAdd(url, title string) {
	a, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if title == "" {
		title = url
	}

	done := make(chan organize.Resolution, 1)
	a.pipeline.OnResolved = func(r organize.Resolution) { done <- r }
	a.pipeline.Attach()

	ctx := context.Background()
	rootID, err := findRoot(ctx, a.store, bookmarks.RootTitleBar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	node, err := a.store.Create(ctx, bookmarks.CreateParams{
		ParentID: rootID,
		Title:    title,
		URL:      url,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding bookmark: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added %q, categorizing...\n", node.Title)

	select {
	case r := <-done:
		if r.Placed {
			fmt.Printf("Filed under %s\n", r.Category)
		} else if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Could not place bookmark: %v\n", r.Err)
		}
	case <-time.After(a.cfg.Debounce() + 2*time.Minute):
		fmt.Fprintln(os.Stderr, "Timed out waiting for categorization.")
	}
}

// runImport handles the import subcommand.
func runImport(filePath string, categorizeAll bool) {
	a, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	resolved := make(chan organize.Resolution, 256)
	if categorizeAll {
		a.pipeline.OnResolved = func(r organize.Resolution) { resolved <- r }
		a.pipeline.Attach()
	}

	file, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	ctx := context.Background()
	rootID, err := findRoot(ctx, a.store, bookmarks.RootTitleOther)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := importer.ImportHTML(ctx, a.store, file, rootID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing bookmarks: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d bookmarks, %d folders\n", result.Bookmarks, result.Folders)

	if categorizeAll {
		for seen := 0; seen < result.Bookmarks; seen++ {
			select {
			case <-resolved:
			case <-time.After(a.cfg.Debounce() + 2*time.Minute):
				fmt.Fprintln(os.Stderr, "Timed out waiting for categorization.")
				return
			}
		}
		fmt.Println("Imported bookmarks categorized.")
	}
}

// runExport handles the export subcommand.
func runExport(outputPath string) {
	a, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if outputPath == "" {
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting default export path: %v\n", err)
			os.Exit(1)
		}
	}

	forest, err := a.store.GetTree(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bookmarks: %v\n", err)
		os.Exit(1)
	}

	html := exporter.ExportHTML(forest)
	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported bookmarks to %s\n", outputPath)
}

// findRoot returns the id of the top-level folder with the given title.
func findRoot(ctx context.Context, store bookmarks.Store, title string) (string, error) {
	roots, err := store.GetChildren(ctx, "")
	if err != nil {
		return "", err
	}
	for _, node := range roots {
		if node.IsFolder() && node.Title == title {
			return node.ID, nil
		}
	}
	return "", fmt.Errorf("root folder %q not found", title)
}
