// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptyText is returned when a note's text is blank after trimming.
	ErrEmptyText = errors.New("note text is empty")

	// ErrNoteNotFound is returned when an operation names a note id
	// that is not on the board.
	ErrNoteNotFound = errors.New("note not found")

	// ErrDuplicateNote is returned when a note id is added twice.
	ErrDuplicateNote = errors.New("duplicate note id")
)

// Note is one labeled item. Every peer holds a full replica; notes are
// never deleted.
type Note struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Categories []Category `json:"categories"`
}

// NewNote builds an uncategorized note. Text is trimmed.
func NewNote(id, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, ErrEmptyText
	}
	return Note{ID: id, Text: text, Categories: []Category{}}, nil
}

// HasCategory reports whether the note appears under category.
func (n Note) HasCategory(category Category) bool {
	return slices.Contains(n.Categories, category)
}

func (n Note) clone() Note {
	n.Categories = append([]Category{}, n.Categories...)
	return n
}

// Entry places a note into a quadrant. The note is a snapshot taken at
// assignment time. On the wire the note fields and the category sit
// side by side in one object.
type Entry struct {
	Note
	Category Category `json:"category"`
}

// State is the shared board: the notes in creation order and, per
// quadrant, the entries in assignment order.
type State struct {
	Notes []Note               `json:"templates"`
	Board map[Category][]Entry `json:"categorizedNotes"`
}

// New returns an empty board.
func New() State {
	return State{Notes: []Note{}, Board: map[Category][]Entry{}}
}

// Clone returns a deep copy sharing no slices or maps with s.
func (s State) Clone() State {
	clone := State{
		Notes: make([]Note, len(s.Notes)),
		Board: make(map[Category][]Entry, len(s.Board)),
	}
	for index, note := range s.Notes {
		clone.Notes[index] = note.clone()
	}
	for category, entries := range s.Board {
		copied := make([]Entry, len(entries))
		for index, entry := range entries {
			copied[index] = Entry{Note: entry.Note.clone(), Category: entry.Category}
		}
		clone.Board[category] = copied
	}
	return clone
}

// Note returns the note with the given id.
func (s State) Note(id string) (Note, bool) {
	index := s.noteIndex(id)
	if index < 0 {
		return Note{}, false
	}
	return s.Notes[index], true
}

func (s State) noteIndex(id string) int {
	return slices.IndexFunc(s.Notes, func(note Note) bool { return note.ID == id })
}

// Entries returns the entries under category, in assignment order.
func (s State) Entries(category Category) []Entry {
	return s.Board[category]
}

// AddNote appends note. The id must not already be present.
func (s *State) AddNote(note Note) error {
	if s.noteIndex(note.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateNote, note.ID)
	}
	if note.Categories == nil {
		note.Categories = []Category{}
	}
	s.Notes = append(s.Notes, note)
	return nil
}

// Categorize places the note with noteID under category. Placing the
// same note in the same quadrant again changes nothing and returns the
// existing entry with added == false.
func (s *State) Categorize(noteID string, category Category) (entry Entry, added bool, err error) {
	if !category.Valid() {
		return Entry{}, false, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	index := s.noteIndex(noteID)
	if index < 0 {
		return Entry{}, false, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}

	for _, existing := range s.Board[category] {
		if existing.ID == noteID {
			return existing, false, nil
		}
	}

	// The entry snapshots the note as it was picked up, before the
	// new category is recorded on it.
	note := &s.Notes[index]
	entry = Entry{Note: note.clone(), Category: category}
	if !note.HasCategory(category) {
		note.Categories = append(note.Categories, category)
	}

	if s.Board == nil {
		s.Board = map[Category][]Entry{}
	}
	s.Board[category] = append(s.Board[category], entry)
	return entry, true, nil
}

// Normalize recomputes every note's categories from the board, in
// quadrant order, and replaces nil slices with empty ones. Quadrants
// without entries are dropped from the map. It does not touch entries
// that fail validation; call Validate afterwards.
func (s *State) Normalize() {
	if s.Notes == nil {
		s.Notes = []Note{}
	}
	if s.Board == nil {
		s.Board = map[Category][]Entry{}
	}
	for category, entries := range s.Board {
		if len(entries) == 0 {
			delete(s.Board, category)
		}
	}

	for index := range s.Notes {
		note := &s.Notes[index]
		projected := []Category{}
		for _, category := range categories {
			for _, entry := range s.Board[category] {
				if entry.ID == note.ID {
					projected = append(projected, category)
					break
				}
			}
		}
		// Keep the note's own ordering when it already agrees with
		// the board, so a consistent snapshot normalizes to itself.
		if !sameSet(note.Categories, projected) {
			note.Categories = projected
		} else if note.Categories == nil {
			note.Categories = []Category{}
		}
	}
}

// Validate checks the board invariants: unique note ids, known
// quadrant labels, entries filed under their own category, every entry
// referring to a known note, and every note's categories matching the
// quadrants it appears in.
func (s State) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(s.Notes))
	for _, note := range s.Notes {
		if note.ID == "" {
			errs = append(errs, errors.New("note with empty id"))
			continue
		}
		if seen[note.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNote, note.ID))
		}
		seen[note.ID] = true
	}

	placements := make(map[string][]Category)
	for category, entries := range s.Board {
		if !category.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCategory, category))
			continue
		}
		for _, entry := range entries {
			if entry.Category != category {
				errs = append(errs, fmt.Errorf("entry %s filed under %s but labeled %s", entry.ID, category, entry.Category))
			}
			if !seen[entry.ID] {
				errs = append(errs, fmt.Errorf("entry under %s: %w: %s", category, ErrNoteNotFound, entry.ID))
				continue
			}
			if slices.Contains(placements[entry.ID], category) {
				errs = append(errs, fmt.Errorf("note %s appears twice under %s", entry.ID, category))
			}
			placements[entry.ID] = append(placements[entry.ID], category)
		}
	}

	for _, note := range s.Notes {
		if !sameSet(note.Categories, placements[note.ID]) {
			errs = append(errs, fmt.Errorf("note %s categories %v do not match board placements %v", note.ID, note.Categories, placements[note.ID]))
		}
	}

	return errors.Join(errs...)
}

func sameSet(a, b []Category) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := slices.Clone(a)
	sortedB := slices.Clone(b)
	slices.Sort(sortedA)
	slices.Sort(sortedB)
	return slices.Equal(sortedA, sortedB)
}
