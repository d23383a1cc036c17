/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/grimoire/games"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return w.Write(data)
}

func servePlain(cfg *Config, w http.ResponseWriter, body string) (int, error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	securityHeaders(cfg, w)

	return w.Write([]byte(body))
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		written, err := servePlain(cfg, w, "grimoire v"+releaseVersion+"\n")
		if err != nil {
			report(errs, err)

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if _, err := servePlain(cfg, w, "Ok\n"); err != nil {
			report(errs, err)
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))

		if _, err := servePlain(cfg, w, "User-agent: *\nDisallow: /api/\n"); err != nil {
			report(errs, err)
		}
	}
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}

func loadCatalog(cfg *Config) (*games.Catalog, error) {
	if cfg.editions == "" {
		return games.DefaultCatalog()
	}

	return games.LoadCatalog(cfg.editions)
}

// newRouter wires every route. It expects cfg.prefix to be normalised.
func newRouter(cfg *Config, mgr *games.Manager, live *liveUpdates, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logf(cfg, "ERROR: panic serving %s: %v", r.URL.Path, i)

		_, _ = writeJSON(cfg, w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "An error has occurred. Please try again.",
		})
	}

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerClocktowerAPI(cfg, "/api", mux, mgr, live, errs)

	return mux
}

// reaperLoop ends sessions that have been idle longer than cfg.sessionTimeout.
func reaperLoop(ctx context.Context, cfg *Config, mgr *games.Manager, live *liveUpdates) {
	ticker := time.NewTicker(cfg.sessionTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range mgr.Store().Reap(now.Add(-cfg.sessionTimeout)) {
				live.close(id)
				logf(cfg, "GAMES: Ended idle game %s", id)
			}
		}
	}
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load editions: %w", err)
	}

	logf(cfg, "START: grimoire v%s (%d editions)", releaseVersion, len(catalog.Editions()))

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mgr := games.NewManager(catalog, games.NewEngine(catalog, nil), games.NewStore())
	live := newLiveUpdates(mgr)

	errs := make(chan error, 64)
	go func() {
		for err := range errs {
			logf(cfg, "ERROR: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, mgr, live, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	if cfg.sessionTimeout > 0 {
		go reaperLoop(ctx, cfg, mgr, live)
	}

	serveErr := make(chan error, 1)

	go func() {
		var err error

		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		live.closeAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	live.closeAll()

	return nil
}
