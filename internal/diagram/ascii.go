package diagram

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/alexiusacademia/gosewer/internal/manhole"
)

// DrawASCIIProfile renders ground, crown and invert lines of a profile as a
// terminal chart. The series are resampled evenly along the chainage so the
// horizontal axis is to scale.
func DrawASCIIProfile(p *manhole.Profile, width, height int) string {
	if p == nil || len(p.Points) < 2 || p.LengthM <= 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}
	if height < 4 {
		height = 4
	}

	x, ground, invert, crown := p.Series()
	series := [][]float64{
		resample(x, ground, width),
		resample(x, crown, width),
		resample(x, invert, width),
	}

	var sb strings.Builder
	sb.WriteString(asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("ground (green), crown (blue), invert (red) over %.0f m", p.LengthM)),
	))
	sb.WriteString("\n")

	// Structure stations under the chart
	marks := []rune(strings.Repeat("─", width))
	for _, s := range p.Structures {
		i := int(s.ChainageM / p.LengthM * float64(width-1))
		if i >= 0 && i < width {
			if s.Kind == manhole.Intermediate {
				marks[i] = '┬'
			} else {
				marks[i] = '▲'
			}
		}
	}
	sb.WriteString(fmt.Sprintf("  %s\n", string(marks)))
	sb.WriteString("  ▲ node structure   ┬ intermediate manhole\n")
	return sb.String()
}

// resample interpolates y(x) at n evenly spaced stations over [x0, xn].
// Repeated x values (drops at a structure) take the first y.
func resample(x, y []float64, n int) []float64 {
	out := make([]float64, n)
	span := x[len(x)-1] - x[0]
	j := 0
	for i := range out {
		at := x[0] + span*float64(i)/float64(n-1)
		for j < len(x)-2 && x[j+1] < at {
			j++
		}
		if x[j+1] == x[j] {
			out[i] = y[j]
			continue
		}
		f := (at - x[j]) / (x[j+1] - x[j])
		out[i] = y[j] + f*(y[j+1]-y[j])
	}
	return out
}

// DrawSummaryBox creates a summary box for results
func DrawSummaryBox(title string, lines []string) string {
	var sb strings.Builder

	maxLen := len([]rune(title))
	for _, line := range lines {
		if n := len([]rune(line)); n > maxLen {
			maxLen = n
		}
	}
	maxLen += 4

	border := strings.Repeat("═", maxLen)
	sb.WriteString(fmt.Sprintf("  ╔%s╗\n", border))
	sb.WriteString(fmt.Sprintf("  ║  %s  ║\n", pad(title, maxLen-4)))
	sb.WriteString(fmt.Sprintf("  ╠%s╣\n", border))
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("  ║  %s  ║\n", pad(line, maxLen-4)))
	}
	sb.WriteString(fmt.Sprintf("  ╚%s╝\n", border))

	return sb.String()
}

// pad right-pads s to n runes; fmt widths count bytes, not runes.
func pad(s string, n int) string {
	if k := len([]rune(s)); k < n {
		return s + strings.Repeat(" ", n-k)
	}
	return s
}
