// Tic-Tac-Toe Game Implementation Tests
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
	"testing"
)

func TestParseMove(t *testing.T) {
	for i, test := range []struct {
		role Role
		text string
		ok   bool
		pos  int
	}{
		{role: RoleFirst, text: "1", ok: true, pos: 0},
		{role: RoleSecond, text: "9", ok: true, pos: 8},
		{role: RoleFirst, text: "5", ok: true, pos: 4},
		{role: RoleNone, text: "5", ok: false},
		{role: RoleFirst, text: "0", ok: false},
		{role: RoleFirst, text: "10", ok: false},
		{role: RoleFirst, text: "5x", ok: false},
		{role: RoleFirst, text: "", ok: false},
		{role: RoleFirst, text: " 5", ok: false},
	} {
		move, err := ParseMove(test.role, test.text)
		if test.ok && err != nil {
			t.Errorf("(%d) Unexpected error: %v", i, err)
		} else if !test.ok && err == nil {
			t.Errorf("(%d) Expected an error", i)
		} else if test.ok && move.Pos != test.pos {
			t.Errorf("(%d) Expected position %d, got %d", i, test.pos, move.Pos)
		}
	}
}

func TestApplyWin(t *testing.T) {
	b := makeBoard()
	moves := []Move{
		{Role: RoleFirst, Pos: 0},
		{Role: RoleSecond, Pos: 3},
		{Role: RoleFirst, Pos: 1},
		{Role: RoleSecond, Pos: 4},
		{Role: RoleFirst, Pos: 2},
	}
	for i, m := range moves {
		if err := b.Apply(m); err != nil {
			t.Fatalf("(%d) Unexpected error: %v", i, err)
		}
	}

	if !b.IsOver() {
		t.Fatal("Expected the game to be over")
	}
	if b.Winner() != RoleFirst {
		t.Fatalf("Expected first to win, got %s", b.Winner())
	}
	if b.Outcome() != OutcomeFirstWins {
		t.Fatalf("Expected OutcomeFirstWins, got %d", b.Outcome())
	}
}

func TestApplyDraw(t *testing.T) {
	b := makeBoard()
	// X O X
	// X O O
	// O X X
	moves := []Move{
		{Role: RoleFirst, Pos: 0},
		{Role: RoleSecond, Pos: 1},
		{Role: RoleFirst, Pos: 2},
		{Role: RoleSecond, Pos: 4},
		{Role: RoleFirst, Pos: 3},
		{Role: RoleSecond, Pos: 5},
		{Role: RoleFirst, Pos: 7},
		{Role: RoleSecond, Pos: 6},
		{Role: RoleFirst, Pos: 8},
	}
	for i, m := range moves {
		if err := b.Apply(m); err != nil {
			t.Fatalf("(%d) Unexpected error: %v", i, err)
		}
	}

	if !b.IsOver() {
		t.Fatal("Expected the game to be over")
	}
	if b.Winner() != RoleNone {
		t.Fatalf("Expected a draw, got winner %s", b.Winner())
	}
	if b.Outcome() != OutcomeDraw {
		t.Fatalf("Expected OutcomeDraw, got %d", b.Outcome())
	}
}

func TestApplyIllegal(t *testing.T) {
	b := makeBoard()
	if err := b.Apply(Move{Role: RoleFirst, Pos: 0}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Wrong turn
	if err := b.Apply(Move{Role: RoleFirst, Pos: 1}); err == nil {
		t.Error("Expected an error for playing out of turn")
	}

	// Occupied cell
	if err := b.Apply(Move{Role: RoleSecond, Pos: 0}); err == nil {
		t.Error("Expected an error for playing an occupied cell")
	}
}

func TestResign(t *testing.T) {
	b := makeBoard()
	if err := b.Resign(RoleFirst); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !b.IsOver() {
		t.Fatal("Expected the game to be over")
	}
	if b.Winner() != RoleSecond {
		t.Fatalf("Expected second to win by resignation, got %s", b.Winner())
	}

	if err := b.Resign(RoleSecond); err == nil {
		t.Error("Expected resigning a finished game to fail")
	}
}

func TestUnparseState(t *testing.T) {
	b := makeBoard()
	for i, m := range []Move{{Role: RoleFirst, Pos: 4}} {
		if err := b.Apply(m); err != nil {
			t.Fatalf("(%d) Unexpected error: %v", i, err)
		}
	}

	want := " | | \n-----\n |X| \n-----\n | | \nO to move"
	if got := b.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRoleOther(t *testing.T) {
	if RoleFirst.Other() != RoleSecond {
		t.Error("Expected first's opposite to be second")
	}
	if RoleSecond.Other() != RoleFirst {
		t.Error("Expected second's opposite to be first")
	}
}
