package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	"golang.org/x/term"

	"github.com/mmcdole/tapedeck/internal/adapter"
	"github.com/mmcdole/tapedeck/internal/catalog"
	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/store"
	"github.com/mmcdole/tapedeck/internal/tui"
	"github.com/mmcdole/tapedeck/internal/tui/styles"
	"github.com/mmcdole/tapedeck/internal/visualizer"
	"github.com/mmcdole/tapedeck/internal/waveform"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                        \r"

type flags struct {
	showVersion bool
	verbose     bool
	play        string
	paths       []string
}

func main() {
	var f flags
	flag.BoolVar(&f.showVersion, "version", false, "print version")
	flag.BoolVar(&f.verbose, "v", false, "log at debug level")
	flag.StringVar(&f.play, "play", "", "start playing the best match for `query`")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: tapedeck [flags] [dir|file|url ...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	f.paths = flag.Args()

	if f.showVersion {
		fmt.Printf("tapedeck %s\n", Version)
		return
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tapedeck needs an interactive terminal")
	}

	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.verbose {
		cfg.Logging.Level = "DEBUG"
	}

	// Setup logger
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting tapedeck", "version", Version)

	paths := cfg.Library.Paths
	if len(f.paths) > 0 {
		paths = f.paths
	}
	if len(paths) == 0 {
		if paths, err = runSetupFlow(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat := catalog.New(catalog.Options{
		Paths:    paths,
		Manifest: cfg.Library.Manifest,
		Logger:   logger,
	})
	if err := scanWithSpinner(ctx, cat); err != nil {
		return err
	}

	var autoplay mo.Option[domain.Track]
	if f.play != "" {
		t, err := cat.Find(f.play)
		if err != nil {
			return fmt.Errorf("-play %q: %w", f.play, err)
		}
		autoplay = mo.Some(t)
	}

	positions, err := store.NewPositionStore(store.Options{
		Path:          cfg.Store.Path,
		FlushInterval: cfg.Store.FlushInterval,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open position store: %w", err)
	}
	defer func() {
		if err := positions.Close(); err != nil {
			logger.Warn("failed to close position store", "error", err)
		}
	}()

	session := playback.NewSession(playback.NewSpeakerOutput(cfg.Playback.SampleRate, logger), logger)
	defer session.Close()
	session.SetVolume(cfg.Playback.Volume)

	dispatcher := tui.NewDispatcher()
	session.SetDispatcher(dispatcher)
	shared := &visualizer.Shared{
		Session:    session,
		Buffers:    waveform.NewBufferCache(),
		Positions:  positions,
		Decoder:    waveform.NewSharedDecoder(waveform.NewBeepDecoder(cfg.Waveform.AnalysisRate, logger)),
		Dispatcher: dispatcher,
		Viewport: visualizer.NewViewport(visualizer.ViewportConfig{
			Margin:      cfg.Waveform.PreloadMargin,
			SmallMargin: cfg.Waveform.SmallViewportMargin,
			SmallRows:   cfg.Waveform.SmallViewportRows,
		}),
		Breakpoints: visualizer.Breakpoints{
			Regular: cfg.UI.Breakpoints.Regular,
			Wide:    cfg.UI.Breakpoints.Wide,
		},
		Palette: styles.Waveform(),
		Logger:  logger,
	}

	// Create TUI model
	model := tui.NewModel(tui.Options{
		Shared:       shared,
		Dispatcher:   dispatcher,
		Tracks:       cat.Tracks(),
		Autoplay:     autoplay,
		PollInterval: cfg.Playback.PollInterval,
		SeekStep:     cfg.Playback.SeekStep,
		Overscan:     cfg.Waveform.Overscan,
		Logger:       logger,
	})

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	dispatcher.Attach(p)

	if cfg.Library.Watch {
		err := cat.Watch(ctx, func(t domain.Track) {
			p.Send(tui.TrackAddedMsg{Track: t})
		})
		if err != nil {
			logger.Warn("library watch disabled", "error", err)
		}
	}

	logger.Info("starting TUI", "tracks", cat.Len())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow asks for a music directory on first run and saves it
func runSetupFlow(cfg *adapter.Config) ([]string, error) {
	fmt.Println()
	fmt.Println("Welcome to tapedeck!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Music directory to browse (e.g., ~/Music): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		dir := strings.TrimSpace(input)
		if dir == "" {
			fmt.Println("Directory cannot be empty. Please try again.")
			continue
		}

		cfg.Library.Paths = []string{dir}
		if err := adapter.SaveConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
		// Reload so ~ is expanded the same way as on later runs
		saved, err := adapter.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		info, err := os.Stat(saved.Library.Paths[0])
		if err != nil || !info.IsDir() {
			fmt.Printf("✗ %s is not a directory. Please try again.\n\n", dir)
			continue
		}

		fmt.Println("✓ Configuration saved!")
		fmt.Println()
		return saved.Library.Paths, nil
	}
}

// scanWithSpinner scans the library with a visual spinner
func scanWithSpinner(ctx context.Context, cat *catalog.Catalog) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// Channel to receive result
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- cat.Scan(ctx)
	}()

	frame := 0
	fmt.Printf("\r%s Scanning library...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return fmt.Errorf("library scan failed: %w", err)
			}
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Scanning library... %d tracks", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)], cat.Len())

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("library scan timed out")
		}
	}
}
