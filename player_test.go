// Player Record and Elo Ranking Tests
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

import "testing"

func TestTranspose(t *testing.T) {
	if transpose(OutcomeFirstWins) != OutcomeSecondWins {
		t.Error("expected OutcomeFirstWins to transpose to OutcomeSecondWins")
	}
	if transpose(OutcomeSecondWins) != OutcomeFirstWins {
		t.Error("expected OutcomeSecondWins to transpose to OutcomeFirstWins")
	}
	if transpose(OutcomeDraw) != OutcomeDraw {
		t.Error("expected OutcomeDraw to transpose to itself")
	}
}

func TestPostResultDrawPreservesSum(t *testing.T) {
	p1 := newPlayer("alice")
	p2 := newPlayer("bob")
	sum := p1.Rating() + p2.Rating()

	PostResult(p1, p2, OutcomeDraw)

	got := p1.Rating() + p2.Rating()
	if d := got - sum; d < -1 || d > 1 {
		t.Fatalf("expected the rating sum to be preserved to within rounding, got %d (was %d)", got, sum)
	}
}

func TestPostResultWinnerGainsLoserLoses(t *testing.T) {
	p1 := newPlayer("alice")
	p2 := newPlayer("bob")

	PostResult(p1, p2, OutcomeFirstWins)

	if p1.Rating() <= InitialRating {
		t.Fatalf("expected the winner's rating to increase, got %d", p1.Rating())
	}
	if p2.Rating() >= InitialRating {
		t.Fatalf("expected the loser's rating to decrease, got %d", p2.Rating())
	}
}

func TestPostResultIdenticalPlayersPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected PostResult to panic when called with identical players")
		}
	}()
	p := newPlayer("alice")
	PostResult(p, p, OutcomeDraw)
}

// TestPostResultOrderIndependent checks that the outcome, not argument
// order, determines who gains rating: calling PostResult(p2, p1,
// transpose(outcome)) must have the same effect as PostResult(p1, p2,
// outcome), regardless of which of p1/p2 has the lower creation
// sequence number.
func TestPostResultOrderIndependent(t *testing.T) {
	a := newPlayer("alice")
	b := newPlayer("bob")
	aRating, bRating := a.Rating(), b.Rating()

	PostResult(a, b, OutcomeSecondWins)

	c := newPlayer("carol")
	d := newPlayer("dave")
	if c.Rating() != aRating || d.Rating() != bRating {
		t.Fatalf("test fixture assumption violated: expected fresh players to start at %d/%d", aRating, bRating)
	}
	PostResult(d, c, transpose(OutcomeSecondWins))

	if a.Rating() != c.Rating() {
		t.Fatalf("expected equivalent outcomes to produce equal ratings, got %d vs %d", a.Rating(), c.Rating())
	}
	if b.Rating() != d.Rating() {
		t.Fatalf("expected equivalent outcomes to produce equal ratings, got %d vs %d", b.Rating(), d.Rating())
	}
}

func TestPlayerRefUnref(t *testing.T) {
	p := newPlayer("alice")
	p.Ref()
	p.Unref()
	p.Unref()
	if p.Name() != "alice" {
		t.Fatalf("expected the record to survive Unref below zero, got name %q", p.Name())
	}
}
