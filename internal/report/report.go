// Package report renders barometer tables and selections for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/selector"
	"github.com/newthinker/trendstrength/internal/universe"
)

var bandColors = map[barometer.Color]lipgloss.Color{
	barometer.Red:    lipgloss.Color("#d62728"),
	barometer.Orange: lipgloss.Color("#ff7f0e"),
	barometer.Green:  lipgloss.Color("#2ca02c"),
}

// Printer writes reports to one output
type Printer struct {
	w           io.Writer
	r           *lipgloss.Renderer
	sectorLevel string
}

// NewPrinter creates a printer for w. The color profile follows w, so
// plain text is written to files and buffers.
func NewPrinter(w io.Writer, sectorLevel string) *Printer {
	return &Printer{
		w:           w,
		r:           lipgloss.NewRenderer(w),
		sectorLevel: sectorLevel,
	}
}

func (p *Printer) title(s string) error {
	_, err := fmt.Fprintln(p.w, p.r.NewStyle().Bold(true).Render(s))
	return err
}

func (p *Printer) band(c barometer.Color) lipgloss.Style {
	return p.r.NewStyle().Foreground(bandColors[c])
}

func (p *Printer) render(headers []string, rows [][]string, colors []barometer.Color) error {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.r.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := p.r.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if row >= 0 && row < len(colors) {
				s = s.Inherit(p.band(colors[row]))
			}
			return s
		})
	_, err := fmt.Fprintln(p.w, tbl.Render())
	return err
}

// Barometer writes the full table in barometer order
func (p *Printer) Barometer(t *barometer.Table, end time.Time) error {
	if err := p.title(fmt.Sprintf("Trend Strength Barometer - %d markets, %d flags - %s",
		t.Len(), len(t.FlagSet), end.Format("2006-01-02"))); err != nil {
		return err
	}

	headers := []string{"#", "Market", "Ticker", "Strength", "Pct"}
	if p.sectorLevel != "" {
		headers = append(headers, p.sectorLevel)
	}

	rows := make([][]string, 0, t.Len())
	colors := make([]barometer.Color, 0, t.Len())
	for i, r := range t.Rows {
		row := []string{
			strconv.Itoa(i + 1),
			r.ShortName,
			universe.ToVendor(r.ID),
			fmt.Sprintf("%+d", r.TrendStrength),
			fmt.Sprintf("%+.0f%%", r.TrendStrengthPct*100),
		}
		if p.sectorLevel != "" {
			row = append(row, t.SectorOf(r, p.sectorLevel))
		}
		rows = append(rows, row)
		colors = append(colors, r.Color)
	}
	if err := p.render(headers, rows, colors); err != nil {
		return err
	}

	if len(t.Missing) > 0 {
		_, err := fmt.Fprintf(p.w, "%d missing flag values scored as neutral\n", len(t.Missing))
		return err
	}
	return nil
}

// Selection writes the selected markets in selection order
func (p *Printer) Selection(t *barometer.Table, heading string, ids []core.InstrumentID) error {
	if err := p.title(heading); err != nil {
		return err
	}
	if len(ids) == 0 {
		_, err := fmt.Fprintln(p.w, "no markets selected")
		return err
	}

	rows := make([][]string, 0, len(ids))
	colors := make([]barometer.Color, 0, len(ids))
	for i, id := range ids {
		r, ok := t.Row(id)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.LongName,
			universe.ToVendor(r.ID),
			fmt.Sprintf("%+d", r.TrendStrength),
		})
		colors = append(colors, r.Color)
	}
	return p.render([]string{"#", "Market", "Ticker", "Strength"}, rows, colors)
}

// Grid writes the short names of a grid selection in panel layout
func (p *Printer) Grid(t *barometer.Table, g selector.Grid, heading string) error {
	if err := p.title(fmt.Sprintf("%s (%dx%d)", heading, g.Height, g.Width)); err != nil {
		return err
	}

	rows := make([][]string, g.Height)
	for i := range rows {
		rows[i] = make([]string, g.Width)
		for j := range rows[i] {
			id := g.Cell(i, j)
			if id == "" {
				continue
			}
			if r, ok := t.Row(id); ok {
				rows[i][j] = fmt.Sprintf("%s %+d", r.ShortName, r.TrendStrength)
			}
		}
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return p.r.NewStyle().Padding(0, 1).Width(22)
		})
	_, err := fmt.Fprintln(p.w, tbl.Render())
	return err
}

// Bars writes one horizontal bar chart per series. Bar length is
// |pct| of width.
func (p *Printer) Bars(data selector.BarData, width int) error {
	for _, bs := range []selector.BarSeries{data.Up, data.Down, data.Neutral, data.Strongly} {
		if err := p.title(bs.Title + " Trending Markets"); err != nil {
			return err
		}

		nameWidth := 0
		for _, n := range bs.ShortNames {
			nameWidth = max(nameWidth, lipgloss.Width(n))
		}
		for i, name := range bs.ShortNames {
			v := bs.Strength[i]
			n := int(math.Round(math.Abs(v) * float64(width)))
			bar := p.band(bs.Colors[i]).Render(strings.Repeat("█", n))
			if _, err := fmt.Fprintf(p.w, "%-*s %+5.0f%% %s\n", nameWidth, name, v*100, bar); err != nil {
				return err
			}
		}
	}
	return nil
}

// Breakdown writes the directional split of one flag by sector
func (p *Printer) Breakdown(flag string, total barometer.Proportions, sectors []barometer.SectorCount) error {
	if err := p.title(fmt.Sprintf("%s - long %.0f%%, neutral %.0f%%, short %.0f%%",
		flag, total.Long*100, total.Neutral*100, total.Short*100)); err != nil {
		return err
	}

	rows := make([][]string, len(sectors))
	for i, s := range sectors {
		rows[i] = []string{
			s.Sector,
			strconv.Itoa(s.Long),
			strconv.Itoa(s.Neutral),
			strconv.Itoa(s.Short),
		}
	}
	return p.render([]string{p.sectorLevel, "Long", "Neutral", "Short"}, rows, nil)
}
