/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"cmp"
	"slices"
)

// NightStep is one character waking during a night.
type NightStep struct {
	Name    string `json:"name"`
	Ability string `json:"ability"`
	Order   int    `json:"order"`
}

type NightOrder struct {
	FirstNight  []NightStep `json:"firstNight"`
	OtherNights []NightStep `json:"otherNights"`
}

// NightOrder lists the characters in play that wake on the first night and
// on every other night, each sorted by rank. Equal ranks keep join order.
func (s Session) NightOrder() (NightOrder, error) {
	if !s.Started {
		return NightOrder{}, newError(KindInvalidState, "game %s has not started", s.ID)
	}

	var inPlay []Character
	for _, p := range s.Participants {
		if p.Character != nil {
			inPlay = append(inPlay, *p.Character)
		}
	}

	return NightOrder{
		FirstNight:  wakeOrder(inPlay, func(c Character) int { return c.FirstNight }),
		OtherNights: wakeOrder(inPlay, func(c Character) int { return c.OtherNights }),
	}, nil
}

func wakeOrder(chars []Character, rank func(Character) int) []NightStep {
	steps := make([]NightStep, 0, len(chars))
	for _, c := range chars {
		if r := rank(c); r > 0 {
			steps = append(steps, NightStep{
				Name:    c.Name,
				Ability: c.Ability,
				Order:   r,
			})
		}
	}

	slices.SortStableFunc(steps, func(a, b NightStep) int {
		return cmp.Compare(a.Order, b.Order)
	})

	return steps
}
