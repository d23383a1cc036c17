/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const idLength = 8

// Participant is anyone in a session. The host never receives a character.
type Participant struct {
	ID        string
	Name      string
	IsHost    bool
	Character *Character
}

// Session is one game: a host, the players who joined, and once started,
// the characters handed out.
type Session struct {
	ID               string
	Edition          string
	Participants     []Participant
	Started          bool
	ParticipantCount int
	CreatedAt        time.Time
	LastActive       time.Time
}

// Host returns the session's host.
func (s Session) Host() Participant {
	for _, p := range s.Participants {
		if p.IsHost {
			return p
		}
	}
	return Participant{}
}

// Players returns every non-host participant in join order.
func (s Session) Players() []Participant {
	players := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if !p.IsHost {
			players = append(players, p)
		}
	}
	return players
}

// Summary is the public view of a session.
type Summary struct {
	ID               string `json:"id"`
	Edition          string `json:"edition"`
	Started          bool   `json:"started"`
	ParticipantCount int    `json:"participantCount"`
}

func (s Session) Summary() Summary {
	return Summary{
		ID:               s.ID,
		Edition:          s.Edition,
		Started:          s.Started,
		ParticipantCount: len(s.Players()),
	}
}

// Manager runs the session lifecycle on top of a Store, drawing characters
// through an Engine.
type Manager struct {
	catalog *Catalog
	engine  *Engine
	store   *Store

	newID func() string
	now   func() time.Time
}

func NewManager(catalog *Catalog, engine *Engine, store *Store) *Manager {
	return &Manager{
		catalog: catalog,
		engine:  engine,
		store:   store,
		newID:   newToken,
		now:     time.Now,
	}
}

func newToken() string {
	return uuid.NewString()[:idLength]
}

func (m *Manager) Catalog() *Catalog { return m.catalog }

func (m *Manager) Store() *Store { return m.store }

// CreateSession opens a new session for editionID with hostName as its
// only participant.
func (m *Manager) CreateSession(editionID, hostName string) (Session, error) {
	if _, err := m.catalog.Edition(editionID); err != nil {
		return Session{}, err
	}

	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return Session{}, newError(KindInvalidArgument, "host name must not be empty")
	}

	now := m.now()
	host := Participant{
		ID:     m.newID(),
		Name:   hostName,
		IsHost: true,
	}

	for {
		s := Session{
			ID:           m.newID(),
			Edition:      editionID,
			Participants: []Participant{host},
			CreatedAt:    now,
			LastActive:   now,
		}

		if m.store.add(s) {
			return s, nil
		}
	}
}

// Session returns a copy of the session with the given id.
func (m *Manager) Session(sessionID string) (Session, error) {
	s, ok := m.store.Get(sessionID)
	if !ok {
		return Session{}, sessionNotFound(sessionID)
	}
	return s, nil
}

// Summary returns the public view of a session.
func (m *Manager) Summary(sessionID string) (Summary, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return Summary{}, err
	}
	return s.Summary(), nil
}

// JoinSession appends a new player to a session that has not started.
func (m *Manager) JoinSession(sessionID, name string) (Participant, error) {
	g, ok := m.store.lookup(sessionID)
	if !ok {
		return Participant{}, sessionNotFound(sessionID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Participant{}, newError(KindInvalidArgument, "participant name must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.Started {
		return Participant{}, newError(KindInvalidState, "game %s has already started", sessionID)
	}

	p := Participant{
		ID:   m.uniqueParticipantID(g.session),
		Name: name,
	}

	g.session.Participants = append(g.session.Participants, p)
	g.session.LastActive = m.now()

	return p, nil
}

// uniqueParticipantID assumes the session's lock is held.
func (m *Manager) uniqueParticipantID(s Session) string {
	for {
		id := m.newID()

		taken := false
		for _, p := range s.Participants {
			if p.ID == id {
				taken = true
				break
			}
		}

		if !taken {
			return id
		}
	}
}

// StartSession hands out characters and closes the session to new players.
// participantCount must match the number of players who have joined.
// If the edition cannot supply a character for every player, the trailing
// players are left without one.
func (m *Manager) StartSession(sessionID string, participantCount int) (Session, error) {
	g, ok := m.store.lookup(sessionID)
	if !ok {
		return Session{}, sessionNotFound(sessionID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.Started {
		return Session{}, newError(KindInvalidState, "game %s has already started", sessionID)
	}

	players := 0
	for _, p := range g.session.Participants {
		if !p.IsHost {
			players++
		}
	}

	if players != participantCount {
		return Session{}, newError(KindInvalidState,
			"participant count does not match: expected %d, have %d", participantCount, players)
	}

	chars, err := m.engine.Assign(g.session.Edition, participantCount)
	if err != nil {
		return Session{}, err
	}

	next := 0
	for i := range g.session.Participants {
		p := &g.session.Participants[i]
		if p.IsHost {
			continue
		}
		if next >= len(chars) {
			break
		}

		c := chars[next]
		p.Character = &c
		next++
	}

	g.session.Started = true
	g.session.ParticipantCount = participantCount
	g.session.LastActive = m.now()

	return g.snapshot(), nil
}

// PlayerRole returns the character assigned to a participant. The second
// return is false when the session or participant is unknown, or nothing
// has been assigned yet.
func (m *Manager) PlayerRole(sessionID, participantID string) (Character, bool) {
	s, ok := m.store.Get(sessionID)
	if !ok {
		return Character{}, false
	}
	return s.PlayerRole(participantID)
}

// NightOrder returns the wake order for a started session.
func (m *Manager) NightOrder(sessionID string) (NightOrder, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return NightOrder{}, err
	}
	return s.NightOrder()
}

// HostOverview returns the host-only view of a session.
func (m *Manager) HostOverview(sessionID, participantID string) (Overview, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return Overview{}, err
	}
	return s.HostOverview(participantID)
}

func sessionNotFound(id string) *Error {
	return newError(KindNotFound, "game %s not found", id)
}
