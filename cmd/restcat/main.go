package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/broady/restcat"
	"github.com/broady/restcat/config"
)

// stdout is where command output goes.
var stdout io.Writer = os.Stdout

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `help:"Config file." short:"c" type:"path" env:"RESTCAT_CONFIG"`
	Catalog   string `help:"Catalog file (overrides the config)." type:"path"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text"`
	LogLevel  string `help:"Log level." enum:"debug,info,warn,error" default:"warn"`
	Output    string `help:"Output format." short:"o" enum:"table,json" default:"table"`
}

type CLI struct {
	Globals

	Version  VersionCmd  `cmd:"" help:"Print version information."`
	Check    CheckCmd    `cmd:"" help:"Check the catalog for integrity problems."`
	List     ListCmd     `cmd:"" help:"List or search endpoints."`
	Describe DescribeCmd `cmd:"" help:"Show the resolved contract of an endpoint method."`
	Prepare  PrepareCmd  `cmd:"" help:"Validate parameters and print the request that would be sent."`
	Call     CallCmd     `cmd:"" help:"Validate, send and classify a request."`
	Serve    ServeCmd    `cmd:"" help:"Serve the explorer API."`
	Export   ExportCmd   `cmd:"" help:"Export the catalog as an OpenAPI document."`
	History  HistoryCmd  `cmd:"" help:"Show recorded calls."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintln(stdout, Version())
	return nil
}

func (g *Globals) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(g.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// load reads the config, applies flag overrides and validates it.
func (g *Globals) load() (*config.Config, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if g.Catalog != "" {
		cfg.Catalog = g.Catalog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *Globals) engine() (*config.Config, *restcat.Engine, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	e, err := cfg.NewEngine(g.logger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, e, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("restcat"),
		kong.Description("Resolve, validate and send requests described by a REST endpoint catalog."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}
