/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// PlayerView is one row of the host overview. Character fields stay nil
// until the session starts.
type PlayerView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Character *string   `json:"character"`
	Ability   *string   `json:"ability"`
	Type      *Category `json:"type"`
}

// Overview is everything the host sees.
type Overview struct {
	GameID     string       `json:"gameId"`
	Edition    string       `json:"edition"`
	Started    bool         `json:"started"`
	Players    []PlayerView `json:"participants"`
	NightOrder *NightOrder  `json:"nightOrder"`
}

// PlayerRole returns the character held by participantID, if any.
func (s Session) PlayerRole(participantID string) (Character, bool) {
	for _, p := range s.Participants {
		if p.ID != participantID {
			continue
		}
		if p.Character == nil {
			return Character{}, false
		}
		return *p.Character, true
	}
	return Character{}, false
}

// HostOverview builds the host's view. Only the host may see it.
func (s Session) HostOverview(participantID string) (Overview, error) {
	if host := s.Host(); participantID == "" || host.ID != participantID {
		return Overview{}, newError(KindForbidden, "only the host can see this view")
	}

	players := s.Players()

	ov := Overview{
		GameID:  s.ID,
		Edition: s.Edition,
		Started: s.Started,
		Players: make([]PlayerView, 0, len(players)),
	}

	for _, p := range players {
		row := PlayerView{
			ID:   p.ID,
			Name: p.Name,
		}
		if c := p.Character; c != nil {
			row.Character = &c.Name
			row.Ability = &c.Ability
			row.Type = &c.Category
		}
		ov.Players = append(ov.Players, row)
	}

	if s.Started {
		order, err := s.NightOrder()
		if err != nil {
			return Overview{}, err
		}
		ov.NightOrder = &order
	}

	return ov, nil
}
