package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"attraction-insights/models"
	"attraction-insights/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

// NewInsightService prints to stdout; use WithOutput to redirect.
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	return &InsightService{logger: s.logger, out: w}
}

func (s *InsightService) Print(d *models.Dashboard) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := s.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 ATTRACTION INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	sum := d.Summary
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total attractions      : \033[1m%d\033[0m\n", sum.TotalAttractions)
	fmt.Fprintf(w, "  Average rating         : \033[1;32m%.2f\033[0m\n", sum.AvgRating)
	fmt.Fprintf(w, "  Free / paid            : \033[1m%d / %d\033[0m\n", sum.FreeAttractions, sum.PaidAttractions)
	fmt.Fprintf(w, "  Rated 4.0 and above    : \033[1m%d\033[0m\n", sum.HighRatedAttractions)
	fmt.Fprintf(w, "  Provinces / cities     : \033[1m%d / %d\033[0m\n", sum.ProvinceCount, sum.CityCount)
	fmt.Fprintf(w, "  All-season attractions : \033[1m%d\033[0m\n", sum.SeasonAll)
	fmt.Fprintf(w, "  Average visit duration : \033[1m%s\033[0m\n", sum.AvgDuration)
	fmt.Fprintln(w)

	// ── TOP RATED ────────────────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Top Rated Attractions\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(d.TopAttractions.Labels) == 0 {
		fmt.Fprintf(w, "  No rated attractions found\n")
	} else {
		for i, name := range d.TopAttractions.Labels {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %s \033[1;32m%.1f ★\033[0m\n",
				i+1, pad(name, 36), d.TopAttractions.Data[i])
		}
	}
	fmt.Fprintln(w)

	s.printBars(w, "Attractions by Province", thin, d.ProvinceDistribution)
	s.printBars(w, "Rating Distribution", thin, d.RatingDistribution)
	s.printBars(w, "Recommended Duration", thin, d.DurationDistribution)
	s.printBars(w, "Recommended Season", thin, d.SeasonDistribution)

	fmt.Fprintf(w, "\033[1;33m  Ticket Prices\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(d.PriceDistribution.Data) == 0 {
		fmt.Fprintf(w, "  No price data\n")
	}
	for _, nv := range d.PriceDistribution.Data {
		fmt.Fprintf(w, "  %s %d\n", pad(nv.Name, 14), nv.Value)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (s *InsightService) printBars(w io.Writer, title, thin string, series models.CountSeries) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(series.Labels) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	peak := 0
	for _, v := range series.Data {
		if v > peak {
			peak = v
		}
	}
	for i, label := range series.Labels {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", series.Data[i]*30/peak)
		}
		fmt.Fprintf(w, "  %s %s (%d)\n", pad(label, 14), bar, series.Data[i])
	}
	fmt.Fprintln(w)
}

// pad truncates and right-fills s to width terminal cells; CJK runes take
// two cells each.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "..."), width)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncateRunes keeps the first n runes of s and marks the cut with "...".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
