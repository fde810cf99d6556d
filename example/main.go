// Command example serves a small blog whose posts and pages are
// materialized by tmpldb at startup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pthm/tmpldb"
	"github.com/pthm/tmpldb/example/pages"
	"github.com/pthm/tmpldb/example/posts"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	cacheDir := flag.String("cache-dir", tmpldb.DefaultCacheDir, "record file directory")
	noCache := flag.Bool("no-cache", false, "always render at startup")
	telemetry := flag.Bool("telemetry", false, "print traces and metrics to stdout")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *addr, *cacheDir, !*noCache, *telemetry); err != nil {
		logger.Error("example stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, addr, cacheDir string, persist, telemetry bool) error {
	opts := []tmpldb.Option{
		tmpldb.WithCacheDir(cacheDir),
		tmpldb.WithPersist(persist),
		tmpldb.WithLogger(logger),
	}
	if telemetry {
		shutdown, telemetryOpts, err := setupTelemetry()
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		opts = append(opts, telemetryOpts...)
	}

	db := tmpldb.New(opts...)
	posts.Register(db)
	if err := pages.Register(db, "The tmpldb blog"); err != nil {
		return fmt.Errorf("register pages: %w", err)
	}

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(db),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr, "types", db.Types())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func setupTelemetry() (func(context.Context), []tmpldb.Option, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))

	shutdown := func(ctx context.Context) {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}
	return shutdown, []tmpldb.Option{
		tmpldb.WithTracerProvider(tp),
		tmpldb.WithMeterProvider(mp),
	}, nil
}

func newMux(db *tmpldb.DB) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_ = tmpldb.WriteHTML(w, r, layout("Posts", indexBody(db)))
	})

	mux.HandleFunc("GET /posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		meta, ok := tmpldb.Find(db, func(m *posts.PostMeta) bool { return m.Slug == slug })
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = tmpldb.WriteHTML(w, r, layout(meta.Title, tmpldb.Content(meta.RenderedContent)))
	})

	mux.HandleFunc("GET /pages/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		page, ok := tmpldb.Find(db, func(m *pages.PageMeta) bool {
			return strings.EqualFold(m.ViewTypeName, name)
		})
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = tmpldb.WriteHTML(w, r, layout(page.Title, tmpldb.Content(page.RenderedContent)))
	})

	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		type summary struct {
			Title   string    `json:"title"`
			Slug    string    `json:"slug"`
			Date    time.Time `json:"date"`
			Tags    []string  `json:"tags"`
			Excerpt string    `json:"excerpt"`
		}
		all := posts.Newest(db)
		out := make([]summary, 0, len(all))
		for _, m := range all {
			out = append(out, summary{
				Title:   m.Title,
				Slug:    m.Slug,
				Date:    m.Date,
				Tags:    m.Tags,
				Excerpt: m.PlainText(),
			})
		}
		_ = tmpldb.WriteJSON(w, http.StatusOK, out)
	})

	return mux
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body>", html.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<footer><a href="/">Posts</a> · <a href="/pages/about">About</a></footer></body></html>`)
		return err
	})
}

func indexBody(db *tmpldb.DB) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<ul>")
		for _, m := range posts.Newest(db) {
			fmt.Fprintf(&b, `<li><a href="/posts/%s">%s</a> <small>%s</small><p>%s</p></li>`,
				m.Slug, html.EscapeString(m.Title), m.Date.Format("2 Jan 2006"), html.EscapeString(m.Summary))
		}
		b.WriteString("</ul>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
