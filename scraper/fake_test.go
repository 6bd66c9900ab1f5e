package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/nepse/driver"
	"github.com/use-agent/nepse/models"
)

type fakeControl struct{ sel string }

func (c fakeControl) Selector() string { return c.sel }

// fakeDriver serves generated table pages. page is 1-based.
type fakeDriver struct {
	rows func(page int) []models.RawRow

	// last is the final page; 0 means pages never run out.
	last         int
	disabledLast bool

	gotoErr        error
	initialWaitErr error
	waitErrOnPage  map[int]error
	extractErr     map[int]error
	clickErrOnPage map[int]error

	// afterExtract runs after each successful ExtractRows.
	afterExtract func(page int)

	page   int
	clicks int
	url    string
	closed int
}

func newFakeDriver(perPage int) *fakeDriver {
	return &fakeDriver{rows: func(page int) []models.RawRow { return genRows(page, perPage) }}
}

func genRows(page, n int) []models.RawRow {
	rows := make([]models.RawRow, n)
	for i := range rows {
		rows[i] = models.RawRow{
			fmt.Sprint(i + 1),
			fmt.Sprintf("SYM%d-%d", page, i+1),
			"100.5", "1.5", "1.52", "99", "101", "98", "2500", "99",
		}
	}
	return rows
}

func (d *fakeDriver) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.url = url
	if d.gotoErr != nil {
		return d.gotoErr
	}
	d.page = 1
	return nil
}

func (d *fakeDriver) WaitForSelector(ctx context.Context, _ string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.clicks == 0 {
		return d.initialWaitErr
	}
	return d.waitErrOnPage[d.page]
}

func (d *fakeDriver) ExtractRows(ctx context.Context, _ driver.TableSpec) ([]models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.extractErr[d.page]; err != nil {
		return nil, err
	}
	rows := d.rows(d.page)
	if d.afterExtract != nil {
		d.afterExtract(d.page)
	}
	return rows, nil
}

func (d *fakeDriver) atLast() bool { return d.last > 0 && d.page >= d.last }

func (d *fakeDriver) FindNextControl(_ context.Context, selectors []string) (driver.Control, error) {
	if d.atLast() && !d.disabledLast {
		return nil, nil
	}
	return fakeControl{sel: selectors[0]}, nil
}

func (d *fakeDriver) IsDisabled(_ context.Context, _ driver.Control) (bool, error) {
	return d.atLast() && d.disabledLast, nil
}

func (d *fakeDriver) Click(ctx context.Context, _ driver.Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.clicks++
	if err := d.clickErrOnPage[d.page]; err != nil {
		return err
	}
	d.page++
	return nil
}

func (d *fakeDriver) Close() error {
	d.closed++
	return nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	next     func() *fakeDriver
	err      error
	sessions []*fakeDriver
}

func (l *fakeLauncher) Name() string { return "fake" }

func (l *fakeLauncher) NewSession(context.Context) (driver.Driver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	d := l.next()
	l.sessions = append(l.sessions, d)
	return d, nil
}

func (l *fakeLauncher) Close() error { return nil }

func (l *fakeLauncher) opened() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
