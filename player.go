// Player Record and Elo Ranking
//
// Copyright (c) 2021  Philip Kaludercic
//
// This file is part of go-kgp.
//
// go-kgp is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-kgp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-kgp. If not, see
// <http://www.gnu.org/licenses/>

package main

import (
	"math"
	"sync"
	"sync/atomic"
)

const (
	// InitialRating is the Elo rating assigned to every newly
	// registered player
	InitialRating = 1500

	eloK       = 32
	eloDivisor = 400
)

// playerSeq hands out a monotonic creation order used only to decide
// lock acquisition order between two Player records
var playerSeq uint64

// Player is a persistent, named participant; its rating is mutable
// and guarded by its own lock
type Player struct {
	name   string
	seq    uint64
	mu     sync.Mutex
	rating int
	refs   int32
}

// newPlayer clones name and assigns the initial rating
func newPlayer(name string) *Player {
	return &Player{
		name:   name,
		seq:    atomic.AddUint64(&playerSeq, 1),
		rating: InitialRating,
	}
}

// Ref increments the player's reference count and returns it, per
// discipline used throughout for shared, asynchronously-referenced records
func (p *Player) Ref() *Player {
	atomic.AddInt32(&p.refs, 1)
	return p
}

// Unref drops a reference; it does not free the record, since the
// player registry keeps every record alive for the lifetime of the
// process
func (p *Player) Unref() {
	atomic.AddInt32(&p.refs, -1)
}

// Name returns the player's immutable name
func (p *Player) Name() string {
	return p.name
}

// Rating is a trivially serialised read of the mutable rating
func (p *Player) Rating() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating
}

// expected returns the logistic expected score of a player rated r
// against an opponent rated against
func expected(r, against int) float64 {
	return 1 / (1 + math.Pow(10, float64(against-r)/eloDivisor))
}

// actualScores translates an Outcome into the pair of actual scores
// (first, second)
func actualScores(outcome Outcome) (float64, float64) {
	switch outcome {
	case OutcomeFirstWins:
		return 1.0, 0.0
	case OutcomeSecondWins:
		return 0.0, 1.0
	default:
		return 0.5, 0.5
	}
}

// PostResult applies a standard Elo update (K=32, divisor 400) to p1
// and p2 given an outcome expressed relative to (p1, p2):
// OutcomeFirstWins means p1 won, OutcomeSecondWins means p2 won.
//
// To avoid deadlock when both players must be locked, the records are
// always locked in the order of their creation sequence number,
// regardless of which is p1. If that reorders the pair relative to
// the caller's (p1, p2), the outcome is transposed to match (1<->2,
// draw unchanged) so the Elo update is still applied from the right
// player's perspective.
func PostResult(p1, p2 *Player, outcome Outcome) {
	if p1 == p2 {
		panic("PostResult called with identical players")
	}

	// Establish a total order on player identities and always
	// acquire the lower-ordered one first. If that swaps the
	// caller's (p1, p2) order, transpose the outcome so "first"
	// and "second" below still refer to whichever of the two
	// records is locked first.
	first, second, outc := p1, p2, outcome
	if p2.seq < p1.seq {
		first, second = p2, p1
		outc = transpose(outcome)
	}

	first.mu.Lock()
	second.mu.Lock()
	defer second.mu.Unlock()
	defer first.mu.Unlock()

	s1, s2 := actualScores(outc)
	e1 := expected(first.rating, second.rating)
	e2 := expected(second.rating, first.rating)

	d1 := int(math.Trunc(eloK * (s1 - e1)))
	d2 := int(math.Trunc(eloK * (s2 - e2)))

	first.rating += d1
	second.rating += d2
}

// transpose swaps a win/loss outcome to match a (p1, p2) reordering;
// a draw is unaffected.
func transpose(outcome Outcome) Outcome {
	switch outcome {
	case OutcomeFirstWins:
		return OutcomeSecondWins
	case OutcomeSecondWins:
		return OutcomeFirstWins
	default:
		return outcome
	}
}
