package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// Terminal styles. lipgloss drops colors when output is not a terminal.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle     = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// shortIDLength is how much of an entry id listings show.
const shortIDLength = 8

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// printEntryTable renders the entries at indexes without their passwords.
// Positions are 1-based, matching the #N selector.
func printEntryTable(w io.Writer, entries []vault.Entry, indexes []int) {
	rows := make([][]string, 0, len(indexes))
	for _, i := range indexes {
		e := entries[i]
		rows = append(rows, []string{
			"#" + strconv.Itoa(i+1),
			e.Title,
			e.Username,
			e.URL,
			shortID(e.ID),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TITLE", "USERNAME", "URL", "ID").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// printEntry shows a single entry. The password is replaced unless reveal is set.
func printEntry(w io.Writer, e vault.Entry, reveal bool) {
	password := mutedStyle.Render("******** (use --show to reveal)")
	if reveal {
		password = e.Password
	}

	field := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-9s", name+":")), value)
	}
	field("Title", e.Title)
	field("Username", e.Username)
	field("Password", password)
	if e.URL != "" {
		field("URL", e.URL)
	}
	if e.Notes != "" {
		field("Notes", e.Notes)
	}
	field("ID", e.ID)
	field("Created", e.CreatedAt)
	if e.UpdatedAt != "" {
		field("Updated", e.UpdatedAt)
	}
}
