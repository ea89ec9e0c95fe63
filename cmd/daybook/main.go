package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/daybook/internal/config"
	"github.com/abelbrown/daybook/internal/coord"
	"github.com/abelbrown/daybook/internal/group"
	"github.com/abelbrown/daybook/internal/ingest"
	"github.com/abelbrown/daybook/internal/logging"
	"github.com/abelbrown/daybook/internal/model"
	"github.com/abelbrown/daybook/internal/push"
	"github.com/abelbrown/daybook/internal/readstate"
	"github.com/abelbrown/daybook/internal/search"
	"github.com/abelbrown/daybook/internal/ui"
	"github.com/abelbrown/daybook/internal/window"
)

func main() {
	granularity := flag.String("group", "day", "bucket granularity: day, week or month")
	activeDate := flag.String("date", "", "active date (2006-01-02) or relative token like now/w")
	icsFile := flag.String("import", "", "import an ICS file into the local cache and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	home := config.Home()
	if err := os.MkdirAll(home, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	if err := logging.Init(filepath.Join(home, "logs")); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logging.Close()

	st, err := model.OpenStore(filepath.Join(home, "daybook.db"))
	if err != nil {
		log.Fatalf("Failed to open item cache: %v", err)
	}
	defer st.Close()

	if *icsFile != "" {
		body, err := os.ReadFile(*icsFile)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *icsFile, err)
		}
		n, err := ingest.Import(body, st)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported %d items from %s\n", n, *icsFile)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reads := readstate.OpenDiskStore(filepath.Join(home, "read"))
	client := search.NewClient(cfg.Backend, 30*time.Second)
	coordinator := coord.New(client, st)

	filter := window.FilterState{
		WeekStart: cfg.WeekStartDay(),
		Location:  cfg.Location(),
	}
	switch {
	case *activeDate == "":
	case window.IsRelative(*activeDate):
		filter.CreatedFrom = *activeDate
	default:
		t, err := time.ParseInLocation(window.DateLayout, *activeDate, cfg.Location())
		if err != nil {
			log.Fatalf("Invalid -date value %q: want %s or a now/ token", *activeDate, window.DateLayout)
		}
		filter.ActiveDate = t
	}

	params := coord.Params{
		Filter:      filter,
		Granularity: parseGranularity(*granularity),
		PageSize:    cfg.PageSize,
	}

	sortOpts := group.SortOptions{
		TopStoryScheme:    cfg.TopStoryScheme,
		CoveragePromotion: cfg.CoveragePromotion,
	}

	cmds := ui.Commands{
		FreshQuery: func() tea.Cmd {
			return func() tea.Msg {
				res, err := coordinator.FreshQuery(ctx, params)
				return ui.QueryDone{Result: res, Err: err}
			}
		},
		LoadPage: func(page int) tea.Cmd {
			return func() tea.Msg {
				res, err := coordinator.LoadPage(ctx, params, page)
				return ui.PageDone{Result: res, Page: page, Err: err}
			}
		},
		Refetch: func(pages int) tea.Cmd {
			return func() tea.Msg {
				res, err := coordinator.Refetch(ctx, params, pages)
				return ui.RefetchDone{Result: res, Err: err}
			}
		},
		SaveRead: func(read model.ReadItems) tea.Cmd {
			return func() tea.Msg {
				return ui.ReadStateSaved{Err: reads.Set(read)}
			}
		},
	}

	app := ui.NewApp(cmds, cfg.PageSize, sortOpts)
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Restore the read map once the program is up.
	go func() {
		read, err := reads.Get()
		program.Send(ui.ReadStateLoaded{Read: read, Err: err})
	}()

	// Bridge push notifications into the UI loop.
	var channel *push.Channel
	if cfg.PushURL != "" {
		channel = push.NewChannel(cfg.PushURL, cfg.ReconnectInterval())
		channel.Start(ctx)
		go func() {
			for {
				select {
				case ev := <-channel.Events():
					program.Send(ui.PushReceived{Event: ev.Event})
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		log.Printf("Error running program: %v", err)
	}

	cancel()
	if channel != nil {
		channel.Wait()
	}
}

func parseGranularity(s string) group.Granularity {
	switch s {
	case "week":
		return group.Week
	case "month":
		return group.Month
	default:
		return group.Day
	}
}
