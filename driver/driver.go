// Package driver abstracts the browser session the scraper pages through.
//
// A Driver is owned by exactly one scrape for its whole lifetime and is never
// shared or pooled. Every blocking call takes a context and, where it waits
// for the page, an explicit timeout; implementations must not sleep
// unconditionally.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/nepse/models"
)

// ErrNotFound is returned by WaitForSelector when the selector never matched
// within the timeout.
var ErrNotFound = errors.New("driver: selector not found")

// TableSpec locates a data table and its rows.
type TableSpec struct {
	// Selector matches the table element, e.g. "table.table".
	Selector string `yaml:"selector"`

	// RowSelector matches data rows inside the table. Default: "tbody tr".
	RowSelector string `yaml:"row_selector"`

	// CellSelector matches cells inside a row. Default: "td".
	CellSelector string `yaml:"cell_selector"`
}

// Rows returns the document-level selector for the table's data rows.
func (t TableSpec) Rows() string {
	return t.Selector + " " + t.rowSelector()
}

func (t TableSpec) rowSelector() string {
	if t.RowSelector == "" {
		return "tbody tr"
	}
	return t.RowSelector
}

func (t TableSpec) cellSelector() string {
	if t.CellSelector == "" {
		return "td"
	}
	return t.CellSelector
}

// Control is an opaque handle to a clickable element such as a "next" link.
type Control interface {
	// Selector reports which selector variant matched the control.
	Selector() string
}

// Driver is a single page session.
type Driver interface {
	// Goto navigates to url and waits for the document to load.
	Goto(ctx context.Context, url string) error

	// WaitForSelector blocks until at least one element matches selector,
	// or returns an error once timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// ExtractRows reads the text cells of every data row in the table.
	ExtractRows(ctx context.Context, table TableSpec) ([]models.RawRow, error)

	// FindNextControl tries each selector in order and returns the first
	// matching element, or nil with a nil error when none match.
	FindNextControl(ctx context.Context, selectors []string) (Control, error)

	// IsDisabled reports whether the control is marked disabled.
	IsDisabled(ctx context.Context, c Control) (bool, error)

	// Click activates the control and waits (bounded) for the page to react.
	Click(ctx context.Context, c Control) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Launcher opens independent Driver sessions.
type Launcher interface {
	// Name identifies the implementation, e.g. "rod" or "http".
	Name() string

	// NewSession opens a fresh, unshared session.
	NewSession(ctx context.Context) (Driver, error)

	// Close releases launcher-wide resources such as the browser process.
	Close() error
}
