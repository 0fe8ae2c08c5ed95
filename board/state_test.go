// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func mustNote(t *testing.T, id, text string) Note {
	t.Helper()
	note, err := NewNote(id, text)
	if err != nil {
		t.Fatalf("NewNote(%q, %q): %v", id, text, err)
	}
	return note
}

func TestNewNoteTrimsAndRejectsBlank(t *testing.T) {
	note := mustNote(t, "n1", "  Soft Skills \n")
	if note.Text != "Soft Skills" {
		t.Errorf("Text = %q, want trimmed", note.Text)
	}
	if note.Categories == nil || len(note.Categories) != 0 {
		t.Errorf("Categories = %#v, want empty non-nil", note.Categories)
	}
	if _, err := NewNote("n2", " \t "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("NewNote(blank) error = %v, want ErrEmptyText", err)
	}
}

func TestAddNoteRejectsDuplicateID(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "one")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if err := state.AddNote(mustNote(t, "n1", "again")); !errors.Is(err, ErrDuplicateNote) {
		t.Errorf("AddNote(duplicate) error = %v, want ErrDuplicateNote", err)
	}
}

func TestCategorizeIsIdempotent(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "Technical Skills")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	first, added, err := state.Categorize("n1", KnownUnknown)
	if err != nil || !added {
		t.Fatalf("first Categorize = (%v, %v), want added", added, err)
	}
	second, added, err := state.Categorize("n1", KnownUnknown)
	if err != nil {
		t.Fatalf("second Categorize: %v", err)
	}
	if added {
		t.Error("second Categorize reported added")
	}
	if second.ID != first.ID || second.Category != first.Category {
		t.Errorf("second Categorize returned %+v, want %+v", second, first)
	}

	if got := len(state.Entries(KnownUnknown)); got != 1 {
		t.Errorf("entries under %s = %d, want 1", KnownUnknown, got)
	}
	note, _ := state.Note("n1")
	if len(note.Categories) != 1 || note.Categories[0] != KnownUnknown {
		t.Errorf("note categories = %v, want [%s]", note.Categories, KnownUnknown)
	}
}

func TestCategorizeMultipleQuadrants(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "Domain Knowledge")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, _, err := state.Categorize("n1", KnownKnown); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	entry, _, err := state.Categorize("n1", UnknownUnknown)
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	// The entry is a snapshot of the note before it landed.
	if len(entry.Categories) != 1 || entry.Categories[0] != KnownKnown {
		t.Errorf("entry snapshot categories = %v, want [%s]", entry.Categories, KnownKnown)
	}
	note, _ := state.Note("n1")
	if len(note.Categories) != 2 {
		t.Errorf("note categories = %v, want two", note.Categories)
	}
	if err := state.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCategorizeErrors(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "one")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, _, err := state.Categorize("missing", KnownKnown); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Categorize(missing) error = %v, want ErrNoteNotFound", err)
	}
	if _, _, err := state.Categorize("n1", "sideways"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Categorize(bad label) error = %v, want ErrUnknownCategory", err)
	}
	if len(state.Board) != 0 {
		t.Errorf("failed Categorize changed the board: %v", state.Board)
	}
}

// TestReferentialInvariantRandomSequences applies random add and
// categorize operations and validates after each one.
func TestReferentialInvariantRandomSequences(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		state := New()
		for step := 0; step < 40; step++ {
			if len(state.Notes) == 0 || random.Intn(3) == 0 {
				id := fmt.Sprintf("run%d-note%d", run, step)
				if err := state.AddNote(mustNote(t, id, id)); err != nil {
					t.Fatalf("AddNote: %v", err)
				}
			} else {
				note := state.Notes[random.Intn(len(state.Notes))]
				category := Categories()[random.Intn(4)]
				if _, _, err := state.Categorize(note.ID, category); err != nil {
					t.Fatalf("Categorize: %v", err)
				}
			}
			if err := state.Validate(); err != nil {
				t.Fatalf("run %d step %d: invariant violated: %v", run, step, err)
			}
		}
	}
}

func TestValidateDetectsViolations(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{
			name: "dangling entry",
			state: State{
				Notes: []Note{},
				Board: map[Category][]Entry{KnownKnown: {{Note: Note{ID: "ghost"}, Category: KnownKnown}}},
			},
		},
		{
			name: "projection mismatch",
			state: State{
				Notes: []Note{{ID: "n1", Text: "one", Categories: []Category{KnownUnknown}}},
				Board: map[Category][]Entry{},
			},
		},
		{
			name: "duplicated projection",
			state: State{
				Notes: []Note{{ID: "n1", Text: "one", Categories: []Category{KnownKnown, KnownKnown}}},
				Board: map[Category][]Entry{
					KnownKnown:   {{Note: Note{ID: "n1"}, Category: KnownKnown}},
					KnownUnknown: {{Note: Note{ID: "n1"}, Category: KnownUnknown}},
				},
			},
		},
		{
			name: "unknown label",
			state: State{
				Notes: []Note{{ID: "n1", Text: "one", Categories: []Category{}}},
				Board: map[Category][]Entry{"maybe": {{Note: Note{ID: "n1"}, Category: "maybe"}}},
			},
		},
		{
			name: "mislabeled entry",
			state: State{
				Notes: []Note{{ID: "n1", Text: "one", Categories: []Category{KnownKnown}}},
				Board: map[Category][]Entry{KnownKnown: {{Note: Note{ID: "n1"}, Category: UnknownKnown}}},
			},
		},
		{
			name: "duplicate id",
			state: State{
				Notes: []Note{{ID: "n1", Text: "one", Categories: []Category{}}, {ID: "n1", Text: "two", Categories: []Category{}}},
				Board: map[Category][]Entry{},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.state.Validate(); err == nil {
				t.Error("Validate accepted an inconsistent board")
			}
		})
	}
}

func TestNormalizeRecomputesProjection(t *testing.T) {
	state := State{
		Notes: []Note{
			{ID: "n1", Text: "one"},
			{ID: "n2", Text: "two", Categories: []Category{KnownKnown}},
		},
		Board: map[Category][]Entry{
			KnownUnknown: {{Note: Note{ID: "n1", Text: "one"}, Category: KnownUnknown}},
			UnknownKnown: {},
		},
	}
	state.Normalize()

	if err := state.Validate(); err != nil {
		t.Fatalf("Validate after Normalize: %v", err)
	}
	first, _ := state.Note("n1")
	if len(first.Categories) != 1 || first.Categories[0] != KnownUnknown {
		t.Errorf("n1 categories = %v, want [%s]", first.Categories, KnownUnknown)
	}
	second, _ := state.Note("n2")
	if second.Categories == nil || len(second.Categories) != 0 {
		t.Errorf("n2 categories = %#v, want empty non-nil", second.Categories)
	}
	if _, ok := state.Board[UnknownKnown]; ok {
		t.Error("empty quadrant kept in the map")
	}
}

func TestCloneIsDeep(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "one")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, _, err := state.Categorize("n1", KnownKnown); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	clone := state.Clone()
	clone.Notes[0].Text = "changed"
	clone.Notes[0].Categories[0] = UnknownUnknown
	clone.Board[KnownKnown][0].Text = "changed"

	if state.Notes[0].Text != "one" || state.Notes[0].Categories[0] != KnownKnown {
		t.Errorf("mutating the clone changed the original note: %+v", state.Notes[0])
	}
	if state.Board[KnownKnown][0].Text != "one" {
		t.Errorf("mutating the clone changed the original entry: %+v", state.Board[KnownKnown][0])
	}
}

func TestWireFormat(t *testing.T) {
	state := New()
	if err := state.AddNote(mustNote(t, "n1", "Soft Skills")); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, _, err := state.Categorize("n1", UnknownKnown); err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"templates":[{"id":"n1","text":"Soft Skills","categories":["unknown-known"]}],` +
		`"categorizedNotes":{"unknown-known":[{"id":"n1","text":"Soft Skills","categories":[],"category":"unknown-known"}]}}`
	if string(data) != want {
		t.Errorf("wire form:\n got %s\nwant %s", data, want)
	}
}

func TestDigest(t *testing.T) {
	build := func(order []string) State {
		state := New()
		for _, id := range order {
			if err := state.AddNote(mustNote(t, id, "text "+id)); err != nil {
				t.Fatalf("AddNote: %v", err)
			}
		}
		for _, id := range order {
			if _, _, err := state.Categorize(id, KnownKnown); err != nil {
				t.Fatalf("Categorize: %v", err)
			}
			if _, _, err := state.Categorize(id, KnownUnknown); err != nil {
				t.Fatalf("Categorize: %v", err)
			}
		}
		return state
	}

	first := build([]string{"a", "b"})
	if first.Digest() != first.Clone().Digest() {
		t.Error("clone has a different digest")
	}
	if first.Digest() != build([]string{"a", "b"}).Digest() {
		t.Error("identical boards have different digests")
	}
	if first.Digest() == build([]string{"b", "a"}).Digest() {
		t.Error("boards with different note order share a digest")
	}
	if len(first.Digest().String()) != 12 {
		t.Errorf("Digest().String() = %q, want 12 hex characters", first.Digest().String())
	}
}
