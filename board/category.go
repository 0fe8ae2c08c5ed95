// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCategory is returned for a label that is not one of the
// four quadrants.
var ErrUnknownCategory = errors.New("unknown category")

// Category is one of the four fixed quadrant labels. The string form
// is what travels on the wire.
type Category string

const (
	KnownKnown     Category = "known-known"
	UnknownKnown   Category = "unknown-known"
	UnknownUnknown Category = "unknown-unknown"
	KnownUnknown   Category = "known-unknown"
)

// categories is the quadrant order: top-left, top-right, bottom-left,
// bottom-right.
var categories = [...]Category{KnownKnown, UnknownKnown, UnknownUnknown, KnownUnknown}

var titles = map[Category]string{
	KnownKnown:     "We know that we know",
	UnknownKnown:   "We didn't know that we knew",
	UnknownUnknown: "We didn't know that we didn't know",
	KnownUnknown:   "We know that we don't know",
}

// Categories returns the four labels in quadrant order.
func Categories() []Category {
	return categories[:]
}

// Valid reports whether c is one of the four labels.
func (c Category) Valid() bool {
	_, ok := titles[c]
	return ok
}

// Title returns the human-readable quadrant heading.
func (c Category) Title() string {
	if title, ok := titles[c]; ok {
		return title
	}
	return string(c)
}

// Quadrant returns the 1-based quadrant number, or 0 for an invalid label.
func (c Category) Quadrant() int {
	for index, category := range categories {
		if category == c {
			return index + 1
		}
	}
	return 0
}

// ParseCategory accepts a label ("known-unknown"), a quadrant number
// ("4") or a title ("we know that we don't know"), case-insensitively.
func ParseCategory(input string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	if number, err := strconv.Atoi(normalized); err == nil {
		if number >= 1 && number <= len(categories) {
			return categories[number-1], nil
		}
		return "", fmt.Errorf("%w: quadrant %d (want 1-%d)", ErrUnknownCategory, number, len(categories))
	}

	for _, category := range categories {
		if normalized == string(category) || normalized == strings.ToLower(titles[category]) {
			return category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, input)
}
