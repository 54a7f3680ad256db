package report

import (
	"fmt"
	"time"

	"github.com/newthinker/trendstrength/internal/selector"
)

var trendTitles = map[selector.Policy]string{
	selector.Up:      "Up Trending Markets",
	selector.Down:    "Down Trending Markets",
	selector.Strong:  "Most Strongly Trending Markets",
	selector.Neutral: "Neutral Trending Markets",
	selector.All:     "Most Strongly and Neutral Trending Markets",
}

// ChartTitle labels a chart panel of the markets chosen under p. Normalized
// panels show relative return; the mixed panel always shows price.
func ChartTitle(p selector.Policy, normalized bool, days int, end time.Time) string {
	p = p.Canonical()
	measure := "Price"
	if normalized && p != selector.All {
		measure = "Relative Return"
	}
	return fmt.Sprintf("%s - %s Over Last %d Trading Days - %s",
		trendTitles[p], measure, days, end.Format("2006-01-02"))
}
