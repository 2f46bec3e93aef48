package colors

import (
	"net/http"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// Status colors an HTTP status code for terminal output:
// green for success, cyan for redirects, yellow for client errors
// and red for server errors.
func Status(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return Red(status)
	case status >= http.StatusBadRequest:
		return Yellow(status)
	case status >= http.StatusMultipleChoices:
		return Cyan(status)
	default:
		return Green(status)
	}
}
