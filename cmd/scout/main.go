// Command scout runs one extraction pass over the given sources and shows
// progress in the terminal. Sources may be URLs or preset names (hn, verge, ...).
// With no arguments the tenant's registered sources are used.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"trendbot/app"
	"trendbot/config"
	"trendbot/logging"
	"trendbot/tui"
	"trendbot/types"
)

func main() {
	tenant := flag.String("tenant", "", "tenant to run for (defaults to configured tenant)")
	plain := flag.Bool("plain", false, "print the run result as JSON instead of the interactive view")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *tenant == "" {
		*tenant = cfg.Tenant
	}

	// the interactive view owns the terminal
	logger := logging.Discard()
	if *plain {
		logger = logging.New(cfg.Log.Level, cfg.Log.Format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	sources, err := resolveSources(ctx, a, *tenant, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sources: %v\n", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No sources given and none registered")
		os.Exit(2)
	}

	if *plain {
		res := a.Pipeline.Run(ctx, *tenant, sources, nil)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	title := fmt.Sprintf("Trend scout · %s", *tenant)
	p := tea.NewProgram(tui.NewModel(title, len(sources)))

	go func() {
		res := a.Pipeline.Run(ctx, *tenant, sources, func(completed, total int) {
			p.Send(tui.ProgressMsg{Completed: completed, Total: total})
		})
		p.Send(tui.RunCompleteMsg{Result: res})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveSources(ctx context.Context, a *app.App, tenant string, args []string) ([]types.SourceDescriptor, error) {
	if len(args) == 0 {
		return a.Store.ActiveSources(ctx, tenant)
	}
	sources := make([]types.SourceDescriptor, 0, len(args))
	for _, arg := range args {
		sources = append(sources, types.SourceDescriptor{Locator: config.ResolveSource(arg)})
	}
	return sources, nil
}
