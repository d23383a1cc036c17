/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Seednode/grimoire/games"
)

var errBadRequest = errors.New("request body is not valid JSON")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// statusFor maps a game error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest, string(games.KindInvalidArgument)
	}

	switch kind := games.KindOf(err); kind {
	case games.KindNotFound:
		return http.StatusNotFound, string(kind)
	case games.KindInvalidState:
		return http.StatusConflict, string(kind)
	case games.KindInvalidArgument:
		return http.StatusBadRequest, string(kind)
	case games.KindForbidden:
		return http.StatusForbidden, string(kind)
	}

	return http.StatusInternalServerError, "internal"
}

func serveError(cfg *Config, w http.ResponseWriter, r *http.Request, err error, errs chan<- error) {
	status, code := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logf(cfg, "ERROR: %s %s: %v", r.Method, r.URL.Path, err)
		msg = "An error has occurred. Please try again."
	}

	if _, werr := writeJSON(cfg, w, status, errorResponse{Error: code, Message: msg}); werr != nil {
		report(errs, werr)

		return
	}

	logf(cfg, "SERVE: %d %s for %s to %s", status, code, r.URL.Path, realIP(r))
}

// report hands err to the server's error log without ever blocking a handler.
func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
