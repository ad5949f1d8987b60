// Package templates renders the HTML pages of the web UI. Components are
// written in .templ files; run `templ generate` after editing them.
package templates

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/distance/internal/store"
)

// IndexData feeds the index page.
type IndexData struct {
	HistoryEnabled bool
	Runs           []store.Run

	// Form defaults
	Slice      string
	Bins       int
	Dimensions int
	Powers     int
}

func runURL(run store.Run) templ.SafeURL {
	return templ.SafeURL("/api/runs/" + run.ID.String())
}

func runTime(run store.Run) string {
	return run.CreatedAt.Format(time.RFC3339)
}

func runDuration(run store.Run) string {
	return run.Duration.Round(time.Millisecond).String()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
