/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/grimoire/games"
)

const qrSize = 320 // mobile-friendly size

// joinURL derives the absolute join link for gameID, respecting TLS and
// X-Forwarded-Proto if present.
func joinURL(cfg *Config, r *http.Request, gameID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + joinReference(cfg, gameID)
}

// serveQR generates a PNG QR code that players scan to join :gameid.
func serveQR(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()
		gameID := ps.ByName("gameid")

		if _, err := mgr.Summary(gameID); err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, gameID), qrcode.Medium, qrSize)
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			report(errs, err)

			return
		}

		logf(cfg, "SERVE: Join code for %s (%s) to %s in %s",
			gameID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
