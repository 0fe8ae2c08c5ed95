// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rianders/sticky-knowledge/board"
	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/session"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 100

// minimumQuadrantWidth keeps the longest quadrant title on one line.
const minimumQuadrantWidth = 40

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	linkStyle    = lipgloss.NewStyle().Underline(true)

	quadrantStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func renderBanner(descriptor session.Descriptor, peerID, baseURL string) string {
	var builder strings.Builder
	builder.WriteString(headingStyle.Render(fmt.Sprintf("sticky room %s", descriptor.RoomID)))
	builder.WriteString(faintStyle.Render(fmt.Sprintf("  (%s, peer %s)", descriptor.Role(), shortID(peerID))))
	builder.WriteString("\nShare link: ")
	builder.WriteString(linkStyle.Render(descriptor.ShareLink(baseURL)))
	return builder.String()
}

// renderBoard draws the four quadrants as a two-by-two grid followed by
// the numbered note list that "cat" refers to.
func renderBoard(state board.State, width int) string {
	quadrantWidth := max(width/2-2, minimumQuadrantWidth)

	boxes := make([]string, 0, 4)
	for _, category := range board.Categories() {
		lines := []string{headingStyle.Render(fmt.Sprintf("%d. %s", category.Quadrant(), category.Title()))}
		entries := state.Entries(category)
		if len(entries) == 0 {
			lines = append(lines, faintStyle.Render("(empty)"))
		}
		for _, entry := range entries {
			lines = append(lines, "• "+ansi.Truncate(entry.Text, quadrantWidth-4, "…"))
		}
		boxes = append(boxes, quadrantStyle.Width(quadrantWidth).Render(strings.Join(lines, "\n")))
	}

	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, boxes[0], boxes[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, boxes[2], boxes[3]),
	)

	var builder strings.Builder
	builder.WriteString(grid)
	builder.WriteString("\n")
	builder.WriteString(headingStyle.Render("Notes"))
	builder.WriteString("\n")
	if len(state.Notes) == 0 {
		builder.WriteString(faintStyle.Render("  (none yet, use 'add <text>')"))
		builder.WriteString("\n")
	}
	textWidth := max(width-24, 16)
	for index, note := range state.Notes {
		text := ansi.Truncate(note.Text, textWidth, "…")
		fmt.Fprintf(&builder, "%3d. %s %s", index+1, text, faintStyle.Render(shortID(note.ID)))
		if len(note.Categories) > 0 {
			quadrants := make([]string, 0, len(note.Categories))
			for _, category := range note.Categories {
				quadrants = append(quadrants, fmt.Sprint(category.Quadrant()))
			}
			fmt.Fprintf(&builder, " [%s]", strings.Join(quadrants, ","))
		}
		builder.WriteString("\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}

func renderPeers(connections []peer.Connection) string {
	if len(connections) == 0 {
		return faintStyle.Render("no peers connected")
	}
	var builder strings.Builder
	for _, connection := range connections {
		fmt.Fprintf(&builder, "%s  %-11s  %s\n", shortID(connection.ID), connection.Role, connection.State())
	}
	return strings.TrimRight(builder.String(), "\n")
}
