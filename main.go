package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/export"
	"github.com/lotas/tabgrid/internal/firefox"
	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/reconcile"
	"github.com/lotas/tabgrid/internal/server"
	"github.com/lotas/tabgrid/internal/storage"
	"github.com/lotas/tabgrid/internal/tabs"
	"github.com/lotas/tabgrid/internal/thumbnail"
	"github.com/lotas/tabgrid/internal/tui"
	"github.com/lotas/tabgrid/internal/types"
)

const defaultPort = 19191

func main() {
	setupLogging()
	defer applog.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "cards":
			runCards(os.Args[2:])
			return
		case "groups":
			runGroups(os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabgrid", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name (skip picker)")
	liveMode := fs.Bool("live", false, "Start in live mode (connect to extension)")
	port := fs.Int("port", envInt("TABGRID_PORT", defaultPort), "WebSocket port for live mode")
	flat := fs.Bool("flat", false, "One card per tab instead of one per group")
	fetchTimeout := fs.Duration("fetch-timeout", 10*time.Second, "Timeout for favicon and thumbnail fetches")
	noImages := fs.Bool("no-images", false, "Do not fetch favicons or thumbnails")
	fs.Parse(os.Args[1:])

	profiles, err := firefox.DiscoverProfiles()
	if err != nil && !*liveMode {
		fmt.Fprintf(os.Stderr, "Error discovering Firefox profiles: %v\n", err)
		os.Exit(1)
	}

	var profile *types.Profile
	if name := resolveProfileName(*profileName); name != "" && !*liveMode {
		p, err := firefox.SelectProfile(profiles, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		profile = &p
	}

	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	keys := storage.NewGroupKeys(db, tui.LiveProfile)

	cfg := tui.Config{
		Profiles:  profiles,
		Profile:   profile,
		Live:      *liveMode,
		Server:    server.New(*port),
		Store:     keys,
		UseStore:  keys.Use,
		StableIDs: stableIDs(),
		Aggregate: !*flat,
	}
	if !*noImages {
		cfg.Fetcher = thumbnail.NewPageFetcher(*fetchTimeout)
	}

	p := tea.NewProgram(tui.NewModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabgrid — card view of browser tabs and tab groups

Usage:
  tabgrid                                              Start the TUI (default)
    --profile <name>       Firefox profile name (skips picker)
    --live                 Start in live mode (connect to extension)
    --port <n>             WebSocket port for live mode (default: 19191)
    --flat                 One card per tab instead of one per group
    --fetch-timeout <d>    Timeout for favicon and thumbnail fetches (default: 10s)
    --no-images            Do not fetch favicons or thumbnails

  tabgrid cards                                        Print the card list
    --profile <name>       Firefox profile name
    --json                 Print JSON instead of markdown
    --flat                 One card per tab instead of one per group
    --render               Render markdown for the terminal
    --out <file>           Output file path (default: stdout)
    --live                 Read tabs from the live extension instead of the session file
    --port <n>             WebSocket port for live mode (default: 19191)

  tabgrid groups                                       List stored group titles and colors
    --profile <name>       Profile whose keys to list ("live" for live mode)
    --clear                Delete the stored keys instead

  tabgrid profiles                                     List Firefox profiles

Environment:
  TABGRID_PROFILE        Default Firefox profile (overridden by --profile flag)
  TABGRID_PORT           Default WebSocket port (overridden by --port flag)
  TABGRID_DB             Database path (default: ~/.local/share/tabgrid/tabgrid.db)
  TABGRID_STABLE_IDS     Key group titles by stable ids (default: 1)
  TABGRID_LOG_DIR        Log directory (default: ~/.local/share/tabgrid)
  TABGRID_DEBUG          Treat internal consistency failures as fatal
`)
}

func setupLogging() {
	dir := os.Getenv("TABGRID_LOG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		dir = filepath.Join(home, ".local", "share", "tabgrid")
	}
	if err := applog.Init(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	if v, _ := strconv.ParseBool(os.Getenv("TABGRID_DEBUG")); v {
		applog.SetStrict(true)
	}
}

func runCards(args []string) {
	fs := flag.NewFlagSet("cards", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name")
	jsonFlag := fs.Bool("json", false, "Print JSON instead of markdown")
	flat := fs.Bool("flat", false, "One card per tab instead of one per group")
	render := fs.Bool("render", false, "Render markdown for the terminal")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	liveMode := fs.Bool("live", false, "Read tabs from the live extension instead of the session file")
	port := fs.Int("port", envInt("TABGRID_PORT", defaultPort), "WebSocket port for live mode")
	fs.Parse(args)

	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		session *types.Session
		label   string
	)
	if *liveMode {
		label = tui.LiveProfile
		session, err = exportLive(*port)
	} else {
		session, err = resolveSession(resolveProfileName(*profileName))
		if err == nil {
			label = session.Profile.Name
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	keys := storage.NewGroupKeys(db, label)
	firefox.SeedGroupKeys(session, keys)
	list, model := buildCards(session, keys, !*flat)

	var output string
	if *jsonFlag {
		output, err = export.JSON(label, model, list)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		output = export.Markdown(label, model, list)
		if *render {
			rendered, err := glamour.Render(output, "dark")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering markdown: %v\n", err)
				os.Exit(1)
			}
			output = rendered
		}
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(output)
	}
}

// buildCards reconciles a card list from session without fetching images.
func buildCards(session *types.Session, store groups.Store, aggregate bool) (*tabs.List, *cards.Model) {
	list := tabs.NewList(stableIDs())
	list.Load(session.Tabs, session.ActiveID)

	resolver := groups.NewResolver(store, groups.Options{StableIDs: list.StableIDs()})
	engine := reconcile.New(cards.New(aggregate), resolver, nil, reconcile.Options{AggregateRelatedTabs: aggregate})
	engine.Attach(list)
	return list, engine.Model()
}

func runGroups(args []string) {
	fs := flag.NewFlagSet("groups", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile whose keys to list")
	clearKeys := fs.Bool("clear", false, "Delete the stored keys instead")
	fs.Parse(args)

	name := resolveProfileName(*profileName)
	if name == "" {
		profiles, err := firefox.DiscoverProfiles()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error discovering Firefox profiles: %v\n", err)
			os.Exit(1)
		}
		p, err := firefox.SelectProfile(profiles, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		name = p.Name
	}

	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	keys := storage.NewGroupKeys(db, name)

	if *clearKeys {
		if err := keys.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared group keys of %s.\n", name)
		return
	}

	list, err := keys.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(list) == 0 {
		fmt.Printf("No stored groups for %s.\n", name)
		return
	}
	for _, k := range list {
		color := types.ColorName(k.Color)
		if color == "" {
			color = "-"
		}
		title := k.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%6d  %-8s  %s\n", k.RootID, color, title)
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering Firefox profiles: %v\n", err)
		os.Exit(1)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles with session data found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

func exportLive(port int) (*types.Session, error) {
	srv := server.New(port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.ListenAndServe(ctx)

	fmt.Fprintf(os.Stderr, "Waiting for Firefox extension on port %d...\n", port)

	timeout := time.After(10 * time.Second)
	for {
		select {
		case msg := <-srv.Messages():
			if msg.Type == server.MsgSnapshot {
				return server.ParseSnapshot(msg)
			}
		case <-timeout:
			return nil, fmt.Errorf("timed out waiting for extension (10s)")
		}
	}
}

func resolveSession(profileName string) (*types.Session, error) {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}
	profile, err := firefox.SelectProfile(profiles, profileName)
	if err != nil {
		return nil, err
	}

	session, err := firefox.ReadSessionFile(profile.Path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	session.Profile = profile
	return session, nil
}

func openDB() (*sql.DB, error) {
	path := os.Getenv("TABGRID_DB")
	if path == "" {
		var err error
		path, err = storage.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.OpenDB(path)
}

func resolveProfileName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("TABGRID_PROFILE")
}

// stableIDs reports whether group keys follow stable tab ids. Defaults to on.
func stableIDs() bool {
	v, err := strconv.ParseBool(os.Getenv("TABGRID_STABLE_IDS"))
	return err != nil || v
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}
