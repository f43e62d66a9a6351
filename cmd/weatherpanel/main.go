package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/lox/weatherpanel/internal/api"
	"github.com/lox/weatherpanel/internal/app"
	"github.com/lox/weatherpanel/internal/config"
	"github.com/lox/weatherpanel/internal/openweather"
	"github.com/lox/weatherpanel/internal/query"
	"github.com/lox/weatherpanel/internal/store"
	"github.com/lox/weatherpanel/internal/suggest"
)

type CLI struct {
	Config string `help:"Path to config file (default: ./config.yaml if present)."`
	DB     string `name:"db" help:"Path to SQLite database, overrides store.path."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Restore panels and serve them over HTTP."`
	Search  SearchCmd  `cmd:"" help:"Search a panel by city name and print its state."`
	Suggest SuggestCmd `cmd:"" help:"Print suggestions for partial input."`
	Coords  CoordsCmd  `cmd:"" help:"Search the primary panel by coordinates (use -- before negative values)."`
	Recent  RecentCmd  `cmd:"" help:"Print the recent-city list."`
}

// env carries the wired components shared by every command.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *store.Store
	client *openweather.Client
	server *api.Server
	app    *app.App
}

func newEnv(cli *CLI) (*env, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.DB != "" {
		cfg.Store.Path = cli.DB
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	st := store.New(db, logger)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.API.Key == "" {
		logger.Warn("WEATHERPANEL_API_KEY is not set; upstream calls will be rejected")
	}
	client := openweather.NewClient(openweather.Options{
		BaseURL:   cfg.API.BaseURL,
		APIKey:    cfg.API.Key,
		Units:     cfg.API.Units,
		Lang:      cfg.API.Lang,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Recorder:  st,
		Logger:    logger,
	})

	locator, err := app.ParseLocation(cfg.App.Location)
	if err != nil {
		db.Close()
		return nil, err
	}

	resolver := query.NewResolver(client, cfg.App.FallbackName, logger)
	suggester := suggest.NewResolver(client, suggest.Options{
		MinQueryLength: cfg.App.MinQueryLength,
		Limit:          cfg.App.SuggestionsLimit,
		SearchLimit:    cfg.API.GeocodeLimit,
		CacheTTL:       cfg.API.CacheTTL,
		Logger:         logger,
	})

	server := api.NewServer(fmt.Sprintf("%d", cfg.Server.Port), logger)
	a := app.New(resolver, suggester, st, locator, app.Options{
		Settings:    cfg.App,
		Render:      server.Render,
		Suggestions: server.PublishSuggestions,
		Logger:      logger,
	})
	server.Attach(a, st)

	return &env{cfg: cfg, logger: logger, db: db, store: st, client: client, server: server, app: a}, nil
}

func (e *env) Close() {
	e.app.Close()
	e.db.Close()
}

type ServeCmd struct {
	NoRestore bool `help:"Skip startup restoration of persisted panels."`
}

func (c *ServeCmd) Run(e *env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoRestore {
		report := e.app.Start(ctx)
		e.logger.Info("startup restoration complete",
			"restored", strings.Join(report.Restored, ","),
			"geolocated", report.Geolocated)
	}

	refresher := app.NewRefresher(e.app, e.store, e.cfg.App.RefreshInterval, e.cfg.Store.Retention, e.logger)
	go refresher.Run(ctx)

	return e.server.Run(ctx)
}

type SearchCmd struct {
	Query []string `arg:"" help:"City name."`
	Panel string   `default:"main" enum:"main,extra1,extra2" help:"Panel to search (main, extra1, extra2)."`
	Force bool     `help:"Bypass deduplication of repeated primary searches."`
}

func (c *SearchCmd) Run(e *env) error {
	p, _ := e.app.Panel(c.Panel)
	state := p.Search(context.Background(), strings.Join(c.Query, " "), c.Force)
	if err := printJSON(state); err != nil {
		return err
	}
	if state.ErrorKind != "" {
		return fmt.Errorf("%s: %s", state.ErrorKind, state.Message)
	}
	return nil
}

type SuggestCmd struct {
	Query []string `arg:"" help:"Partial city name."`
}

func (c *SuggestCmd) Run(e *env) error {
	return printJSON(e.app.Suggest(context.Background(), strings.Join(c.Query, " ")))
}

type CoordsCmd struct {
	Lat float64 `arg:"" help:"Latitude."`
	Lon float64 `arg:"" help:"Longitude."`
}

func (c *CoordsCmd) Run(e *env) error {
	p, _ := e.app.Panel(app.PanelMain)
	state := p.SearchCoords(context.Background(), c.Lat, c.Lon)
	if err := printJSON(state); err != nil {
		return err
	}
	if state.ErrorKind != "" {
		return fmt.Errorf("%s: %s", state.ErrorKind, state.Message)
	}
	return nil
}

type RecentCmd struct{}

func (c *RecentCmd) Run(e *env) error {
	return printJSON(e.app.RecentCities())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("weatherpanel"),
		kong.Description("Weather panels for a primary city and two extra cities."),
		kong.UsageOnError(),
	)

	e, err := newEnv(&cli)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(e)
	e.Close()
	kctx.FatalIfErrorf(err)
}
