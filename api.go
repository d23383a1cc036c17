/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/grimoire/games"
)

const maxBodyBytes = 64 << 10

type createRequest struct {
	Edition  string `json:"edition"`
	HostName string `json:"hostName"`
}

type createResponse struct {
	GameID        string `json:"gameId"`
	Edition       string `json:"edition"`
	HostID        string `json:"hostId"`
	JoinReference string `json:"joinReference"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	GameID        string `json:"gameId"`
}

type startRequest struct {
	ParticipantCount int `json:"participantCount"`
}

type startResponse struct {
	GameID  string `json:"gameId"`
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// characterView is how a catalog character is listed to clients.
type characterView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Ability     string         `json:"ability"`
	FirstNight  int            `json:"firstNight"`
	OtherNights int            `json:"otherNights"`
	Type        games.Category `json:"type"`
}

// roleView is what a player sees of their own character.
type roleView struct {
	Name    string         `json:"name"`
	Ability string         `json:"ability"`
	Type    games.Category `json:"type"`
}

func newRoleView(c games.Character) roleView {
	return roleView{
		Name:    c.Name,
		Ability: c.Ability,
		Type:    c.Category,
	}
}

// joinReference is the path players open to join a game.
func joinReference(cfg *Config, gameID string) string {
	return cfg.prefix + "/join?game=" + url.QueryEscape(gameID)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	return nil
}

func respond(cfg *Config, w http.ResponseWriter, r *http.Request, status int, v any, what string, startTime time.Time, errs chan<- error) {
	written, err := writeJSON(cfg, w, status, v)
	if err != nil {
		report(errs, err)

		return
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		what,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func serveEditions(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		respond(cfg, w, r, http.StatusOK, mgr.Catalog().Editions(), "Edition list", startTime, errs)
	}
}

func serveCharacters(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()
		edition := ps.ByName("edition")

		chars, err := mgr.Catalog().Characters(edition)
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		out := make(map[games.Category][]characterView, len(chars))
		for cat, list := range chars {
			views := make([]characterView, 0, len(list))
			for _, c := range list {
				views = append(views, characterView{
					ID:          c.ID,
					Name:        c.Name,
					Ability:     c.Ability,
					FirstNight:  c.FirstNight,
					OtherNights: c.OtherNights,
					Type:        c.Category,
				})
			}
			out[cat] = views
		}

		respond(cfg, w, r, http.StatusOK, out, "Characters for "+edition, startTime, errs)
	}
}

func serveCreateGame(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req createRequest
		if err := decodeBody(w, r, &req); err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		s, err := mgr.CreateSession(req.Edition, req.HostName)
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		logf(cfg, "GAMES: Created %s game %s for host %q", s.Edition, s.ID, s.Host().Name)

		respond(cfg, w, r, http.StatusCreated, createResponse{
			GameID:        s.ID,
			Edition:       s.Edition,
			HostID:        s.Host().ID,
			JoinReference: joinReference(cfg, s.ID),
		}, "New game", startTime, errs)
	}
}

func serveGame(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		summary, err := mgr.Summary(ps.ByName("gameid"))
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		respond(cfg, w, r, http.StatusOK, summary, "Game "+summary.ID, startTime, errs)
	}
}

func serveJoinGame(cfg *Config, mgr *games.Manager, live *liveUpdates, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()
		gameID := ps.ByName("gameid")

		var req joinRequest
		if err := decodeBody(w, r, &req); err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		p, err := mgr.JoinSession(gameID, req.Name)
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		logf(cfg, "GAMES: Player %q joined %s", p.Name, gameID)

		live.publish(gameID)

		respond(cfg, w, r, http.StatusOK, joinResponse{
			ParticipantID: p.ID,
			Name:          p.Name,
			GameID:        gameID,
		}, "Join for "+gameID, startTime, errs)
	}
}

func serveStartGame(cfg *Config, mgr *games.Manager, live *liveUpdates, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()
		gameID := ps.ByName("gameid")

		var req startRequest
		if err := decodeBody(w, r, &req); err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		s, err := mgr.StartSession(gameID, req.ParticipantCount)
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		logf(cfg, "GAMES: Started %s with %d players", s.ID, s.ParticipantCount)

		live.publish(gameID)

		respond(cfg, w, r, http.StatusOK, startResponse{
			GameID:  s.ID,
			Started: s.Started,
			Message: "Game started! Characters have been handed out.",
		}, "Start for "+gameID, startTime, errs)
	}
}

func servePlayerRole(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		c, ok := mgr.PlayerRole(ps.ByName("gameid"), ps.ByName("participantid"))
		if !ok {
			serveError(cfg, w, r, &games.Error{Kind: games.KindNotFound, Message: "role not found"}, errs)

			return
		}

		respond(cfg, w, r, http.StatusOK, newRoleView(c), "Role", startTime, errs)
	}
}

func serveHostOverview(cfg *Config, mgr *games.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		ov, err := mgr.HostOverview(ps.ByName("gameid"), ps.ByName("hostid"))
		if err != nil {
			serveError(cfg, w, r, err, errs)

			return
		}

		respond(cfg, w, r, http.StatusOK, ov, "Host overview for "+ov.GameID, startTime, errs)
	}
}

// registerClocktowerAPI sets up routes so that:
//   - $path/editions                              → edition list
//   - $path/editions/:edition/characters          → characters by category
//   - $path/game                                  → create a game (POST)
//   - $path/game/:gameid                          → game summary
//   - $path/game/:gameid/join, /start             → join or start (POST)
//   - $path/game/:gameid/qr                       → PNG QR code of the join link
//   - $path/game/:gameid/ws                       → live updates
//   - $path/player/:gameid/:participantid/role    → a player's character
//   - $path/host/:gameid/:hostid/overview         → the host's grimoire
func registerClocktowerAPI(cfg *Config, path string, mux *httprouter.Router, mgr *games.Manager, live *liveUpdates, errs chan<- error) {
	base := cfg.prefix + path

	mux.GET(base+"/editions", serveEditions(cfg, mgr, errs))
	mux.GET(base+"/editions/:edition/characters", serveCharacters(cfg, mgr, errs))

	mux.POST(base+"/game", serveCreateGame(cfg, mgr, errs))
	mux.GET(base+"/game/:gameid", serveGame(cfg, mgr, errs))
	mux.POST(base+"/game/:gameid/join", serveJoinGame(cfg, mgr, live, errs))
	mux.POST(base+"/game/:gameid/start", serveStartGame(cfg, mgr, live, errs))
	mux.GET(base+"/game/:gameid/qr", serveQR(cfg, mgr, errs))
	mux.GET(base+"/game/:gameid/ws", serveLive(cfg, mgr, live))

	mux.GET(base+"/player/:gameid/:participantid/role", servePlayerRole(cfg, mgr, errs))
	mux.GET(base+"/host/:gameid/:hostid/overview", serveHostOverview(cfg, mgr, errs))
}
