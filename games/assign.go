/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
)

// Engine picks characters for a game. Selection and shuffling are separate
// steps so either can be exercised on its own.
type Engine struct {
	catalog *Catalog

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewEngine returns an engine drawing from catalog. A nil rng gets a
// randomly seeded generator.
func NewEngine(catalog *Catalog, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Engine{
		catalog: catalog,
		rng:     rng,
	}
}

// Distribution returns how many characters of each category a game with
// participantCount players uses. There is no fallback for counts missing
// from the edition's table.
func (e *Engine) Distribution(editionID string, participantCount int) (Distribution, error) {
	ed, err := e.catalog.Edition(editionID)
	if err != nil {
		return nil, err
	}

	dist, ok := ed.Setup[participantCount]
	if !ok {
		return nil, newError(KindInvalidArgument, "invalid participant count: %d", participantCount)
	}

	return maps.Clone(dist), nil
}

// SelectCharacters draws, per category, the requested number of characters
// uniformly at random without replacement. A category with fewer characters
// than requested contributes all it has.
func (e *Engine) SelectCharacters(editionID string, dist Distribution) ([]Character, error) {
	ed, err := e.catalog.Edition(editionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	selected := make([]Character, 0, dist.Total())

	for _, cat := range Categories {
		want := dist[cat]
		if want <= 0 {
			continue
		}

		pool := slices.Clone(ed.Characters[cat])
		n := min(want, len(pool))

		// partial Fisher-Yates: pool[:n] ends up a uniform sample
		for i := range n {
			j := i + e.rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}

		selected = append(selected, pool[:n]...)
	}

	return selected, nil
}

// Shuffle permutes chars in place.
func (e *Engine) Shuffle(chars []Character) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rng.Shuffle(len(chars), func(i, j int) {
		chars[i], chars[j] = chars[j], chars[i]
	})
}

// Assign runs the full selection for a game: distribution lookup, per
// category sampling, then one shuffle of the combined list.
func (e *Engine) Assign(editionID string, participantCount int) ([]Character, error) {
	dist, err := e.Distribution(editionID, participantCount)
	if err != nil {
		return nil, err
	}

	chars, err := e.SelectCharacters(editionID, dist)
	if err != nil {
		return nil, err
	}

	e.Shuffle(chars)

	return chars, nil
}
