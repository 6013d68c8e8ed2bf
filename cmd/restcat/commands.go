package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/broady/restcat"
	"github.com/broady/restcat/history"
	"github.com/broady/restcat/internal/metrics"
	"github.com/broady/restcat/middleware"
	"github.com/broady/restcat/openapi"
	"github.com/broady/restcat/server"
)

type CheckCmd struct{}

func (c *CheckCmd) Run(g *Globals, ctx context.Context) error {
	_, e, err := g.engine()
	if err != nil {
		return err
	}
	err = e.Check(ctx)
	if err == nil {
		fmt.Fprintf(stdout, "ok: %d endpoints\n", e.Catalog().Len())
		return nil
	}
	problems := unjoin(err)
	for _, p := range problems {
		fmt.Fprintln(stdout, p)
	}
	return fmt.Errorf("%d integrity problem(s)", len(problems))
}

func unjoin(err error) []error {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		return u.Unwrap()
	}
	return []error{err}
}

type ListCmd struct {
	Query  string `arg:"" optional:"" help:"Search text matched against templates and summaries."`
	Prefix string `help:"Only templates with this prefix."`
	Method string `help:"Only this HTTP method." short:"m"`
}

func (c *ListCmd) Run(g *Globals) error {
	_, e, err := g.engine()
	if err != nil {
		return err
	}
	results := e.Catalog().Filter(c.Prefix, c.Method)
	if c.Query != "" {
		hits := make(map[restcat.EndpointSummary]bool)
		for _, es := range e.Catalog().Search(c.Query) {
			hits[es] = true
		}
		kept := results[:0]
		for _, es := range results {
			if hits[es] {
				kept = append(kept, es)
			}
		}
		results = kept
	}
	if g.Output == "json" {
		return printJSON(results)
	}
	printEndpoints(results)
	return nil
}

type DescribeCmd struct {
	Template string `arg:"" help:"Endpoint template, such as apps/local/{name}."`
	Method   string `arg:"" help:"HTTP method."`
}

func (c *DescribeCmd) Run(g *Globals) error {
	_, e, err := g.engine()
	if err != nil {
		return err
	}
	d, err := e.Describe(c.Template, c.Method)
	if err != nil {
		return err
	}
	if g.Output == "json" {
		return printJSON(d)
	}
	printDescription(d)
	return nil
}

// RequestArgs are the arguments shared by prepare and call.
type RequestArgs struct {
	Template string            `arg:"" help:"Endpoint template."`
	Method   string            `arg:"" help:"HTTP method."`
	Path     map[string]string `help:"Path placeholder value." placeholder:"NAME=VALUE" mapsep:"none"`
	Param    []string          `help:"Request parameter; repeat for multiple values." short:"p" placeholder:"KEY=VALUE" sep:"none"`
}

func (a *RequestArgs) params() (url.Values, error) {
	return parseParams(a.Param)
}

// parseParams turns KEY=VALUE arguments into url.Values. Only the first "="
// separates; repeated keys keep every value.
func parseParams(args []string) (url.Values, error) {
	vals := make(url.Values)
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: want KEY=VALUE", arg)
		}
		vals.Add(k, v)
	}
	return vals, nil
}

type PrepareCmd struct {
	RequestArgs
}

func (c *PrepareCmd) Run(g *Globals) error {
	cfg, e, err := g.engine()
	if err != nil {
		return err
	}
	params, err := c.params()
	if err != nil {
		return err
	}
	req, err := e.Prepare(c.Template, c.Method, c.Path, params)
	if err != nil {
		return reportError(g, err)
	}
	if g.Output == "json" {
		return printJSON(req)
	}
	base := cfg.Target.BaseURL
	if base == "" {
		base = "/"
	}
	return printRequest(req, base)
}

type CallCmd struct {
	RequestArgs
	Raw bool `help:"Print only the response body."`
}

func (c *CallCmd) Run(g *Globals, ctx context.Context) error {
	cfg, e, err := g.engine()
	if err != nil {
		return err
	}
	client, err := cfg.Target.Client()
	if err != nil {
		return err
	}
	params, err := c.params()
	if err != nil {
		return err
	}
	req, err := e.Prepare(c.Template, c.Method, c.Path, params)
	if err != nil {
		return reportError(g, err)
	}

	entry := &history.Entry{Template: c.Template, Method: req.Method, Path: req.Path}
	resp, err := client.Do(ctx, req)
	if err != nil {
		entry.Error = err.Error()
		recordHistory(ctx, g, cfg.History.Path, entry)
		return err
	}
	cl, err := e.Classify(c.Template, c.Method, resp.Status)
	if err != nil {
		return err
	}
	entry.Status, entry.Outcome, entry.Duration = resp.Status, string(cl.Outcome), resp.Duration
	recordHistory(ctx, g, cfg.History.Path, entry)

	switch {
	case c.Raw:
		_, err = stdout.Write(resp.Body)
		return err
	case g.Output == "json":
		return printJSON(map[string]any{"classification": cl, "duration": resp.Duration.String(), "body": string(resp.Body)})
	}
	printCall(cl, resp)
	return nil
}

func recordHistory(ctx context.Context, g *Globals, path string, entry *history.Entry) {
	if path == "" {
		return
	}
	logger := g.logger()
	store, err := history.Open(path, logger)
	if err != nil {
		logger.Error("opening history", "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, entry); err != nil {
		logger.Error("recording call", "error", err)
	}
}

// reportError prints violations in the selected format before returning err.
func reportError(g *Globals, err error) error {
	var verr *restcat.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if g.Output == "json" {
		if perr := printJSON(restcat.DefaultErrorTransformer(err)); perr != nil {
			return perr
		}
	} else {
		printViolations(verr.Violations)
	}
	return fmt.Errorf("%d invalid parameter(s)", len(verr.Violations))
}

type ServeCmd struct {
	Addr  string `help:"Listen address (overrides the config)."`
	Watch bool   `help:"Reload the catalog when the file changes."`
}

func (c *ServeCmd) Run(g *Globals, ctx context.Context) error {
	cfg, e, err := g.engine()
	if err != nil {
		return err
	}
	logger := g.logger()
	if err := e.Check(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	srv := server.New(e).
		WithLogger(logger).
		WithMetrics(m, reg).
		WithOpenAPIInfo(openapi.Options{Title: "restcat", Version: Version()})
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		srv = srv.WithCORS(cors)
	}
	if client, err := cfg.Target.Client(); err == nil {
		srv = srv.WithClient(client)
	}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		srv = srv.WithHistory(store)
	}

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	if c.Watch || cfg.Server.Watch {
		build, err := cfg.Engine.Factory(logger)
		if err != nil {
			return err
		}
		eg.Go(func() error { return srv.Watch(ctx, cfg.Catalog, build) })
	}
	eg.Go(func() error {
		logger.Info("serving", "addr", addr, "endpoints", e.Catalog().Len())
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

type ExportCmd struct {
	Format string `help:"Document format." enum:"json,yaml" default:"json"`
	Title  string `help:"Document title." default:"restcat"`
}

func (c *ExportCmd) Run(g *Globals) error {
	_, e, err := g.engine()
	if err != nil {
		return err
	}
	doc, err := openapi.Export(e, openapi.Options{Title: c.Title, Version: Version()})
	if err != nil {
		return err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	if c.Format == "yaml" {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return err
		}
	}
	_, err = stdout.Write(data)
	return err
}

type HistoryCmd struct {
	history.Query `embed:""`
}

func (c *HistoryCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.New("history is disabled: set history.path in the config")
	}
	store, err := history.Open(cfg.History.Path, g.logger())
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx, c.Query)
	if err != nil {
		return err
	}
	if g.Output == "json" {
		return printJSON(entries)
	}
	printHistory(entries, time.Now())
	return nil
}
