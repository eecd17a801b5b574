package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"mindful-paint/internal/relay"
)

func styledTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// RoomsView renders the rooms reported by a relay.
func RoomsView(rooms []relay.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}
	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []string{r.ID, fmt.Sprintf("%d", len(r.Members)), shortIDs(r.Members)})
	}
	return styledTable([]string{"Room", "Members", "Connections"}, rows)
}

func shortIDs(ids []string) string {
	short := make([]string, len(ids))
	for i, id := range ids {
		if len(id) > 8 {
			id = id[:8]
		}
		short[i] = id
	}
	return strings.Join(short, ", ")
}

type ReplaySummary struct {
	Source   string
	Applied  int
	Rejected int
	Duration string
	Output   string
}

func ReplaySummaryView(s ReplaySummary) string {
	rows := [][]string{
		{"Recording", s.Source},
		{"Applied", fmt.Sprintf("%d", s.Applied)},
		{"Rejected", fmt.Sprintf("%d", s.Rejected)},
		{"Duration", s.Duration},
		{"Output", s.Output},
	}
	return styledTable([]string{"Metric", "Value"}, rows)
}

// RoomBanner shows where a browser can join the room being drawn in.
func RoomBanner(roomID, link string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Secondary).
		Padding(1, 2)

	content := fmt.Sprintf("%s %s %s\n\n%s %s",
		IconRoom, TitleStyle.Render("Drawing in room"), BoldStyle.Foreground(Primary).Render(roomID),
		IconWeb, MutedStyle.Render(link),
	)
	return box.Render(content)
}
