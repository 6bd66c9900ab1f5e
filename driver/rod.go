package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/models"
	"github.com/ysmood/gson"
)

// RodLauncher owns one headless Chromium process. Each session gets its own
// incognito browser context, so concurrent scrapes never share cookies,
// storage or DOM state.
type RodLauncher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
}

// NewRodLauncher launches the browser and connects to it.
func NewRodLauncher(cfg config.BrowserConfig) (*RodLauncher, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	return &RodLauncher{browser: browser, launcher: l, cfg: cfg}, nil
}

func (r *RodLauncher) Name() string { return "rod" }

// NewSession opens an incognito context with a single page.
func (r *RodLauncher) NewSession(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	incognito, err := r.browser.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create browser context", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	// Stealth and resource blocking only apply to navigations after they are installed.
	if r.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if r.cfg.AcceptLanguage != "" {
		err := proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Accept-Language": gson.New(r.cfg.AcceptLanguage)},
		}.Call(page)
		if err != nil {
			slog.Warn("setting Accept-Language failed, proceeding with browser default", "error", err)
		}
	}

	return &rodSession{
		incognito: incognito,
		page:      page,
		router:    setupHijack(page, r.cfg.BlockedResourceTypes, r.cfg.BlockAds),
		clickWait: r.cfg.ClickWait,
	}, nil
}

// Close kills the browser process.
func (r *RodLauncher) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}

type rodSession struct {
	incognito *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	clickWait time.Duration

	// table and signature describe the rows last read by ExtractRows; Click
	// waits for the signature to change.
	table     TableSpec
	signature string

	closeOnce sync.Once
	closeErr  error
}

type rodControl struct {
	el       *rod.Element
	selector string
}

func (c *rodControl) Selector() string { return c.selector }

func (s *rodSession) Goto(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	if err := p.WaitElementsMoreThan(selector, 0); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %q within %s: %w", ErrNotFound, selector, timeout, err)
		}
		return err
	}
	// Tables are often filled in several frames; give the DOM a moment to settle.
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (s *rodSession) ExtractRows(ctx context.Context, table TableSpec) ([]models.RawRow, error) {
	p := s.page.Context(ctx)
	has, el, err := p.Has(table.Selector)
	if err != nil {
		return nil, fmt.Errorf("query table %q: %w", table.Selector, err)
	}
	s.table = table
	if !has {
		s.signature = ""
		return nil, nil
	}

	outer, err := el.HTML()
	if err != nil {
		return nil, fmt.Errorf("read table html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}

	rows := ParseRows(doc.Selection, table)
	s.signature = rowSignature(rows)
	return rows, nil
}

func (s *rodSession) FindNextControl(ctx context.Context, selectors []string) (Control, error) {
	p := s.page.Context(ctx)
	for _, sel := range selectors {
		has, el, err := p.Has(sel)
		if err != nil {
			return nil, fmt.Errorf("query next control %q: %w", sel, err)
		}
		if has {
			return &rodControl{el: el, selector: sel}, nil
		}
	}
	return nil, nil
}

// disabledJS covers <button disabled>, <span disabled="disabled">, Bootstrap's
// li.disabled wrappers and aria-disabled links.
const disabledJS = `() => {
	if (this.disabled === true) return true;
	if (this.getAttribute('disabled') !== null) return true;
	if (this.getAttribute('aria-disabled') === 'true') return true;
	if (this.classList.contains('disabled')) return true;
	const parent = this.parentElement;
	return !!parent && parent.classList.contains('disabled');
}`

func (s *rodSession) IsDisabled(ctx context.Context, c Control) (bool, error) {
	ctl, ok := c.(*rodControl)
	if !ok {
		return false, fmt.Errorf("rod: foreign control %T", c)
	}
	res, err := ctl.el.Context(ctx).Eval(disabledJS)
	if err != nil {
		return false, fmt.Errorf("evaluate disabled state: %w", err)
	}
	return res.Value.Bool(), nil
}

// rowsChangedJS recomputes the first-row signature the same way ParseRows does.
const rowsChangedJS = `(rowSel, cellSel, prev) => {
	const tr = Array.from(document.querySelectorAll(rowSel))
		.find(r => r.querySelectorAll(cellSel).length > 0);
	if (!tr) return false;
	const sig = Array.from(tr.querySelectorAll(cellSel))
		.map(td => td.textContent.split(/\s+/).filter(Boolean).join(' '))
		.join('\x1f');
	return sig !== prev;
}`

func (s *rodSession) Click(ctx context.Context, c Control) error {
	ctl, ok := c.(*rodControl)
	if !ok {
		return fmt.Errorf("rod: foreign control %T", c)
	}

	p := s.page.Context(ctx).Timeout(s.clickWait)
	el := ctl.el.Context(p.GetContext())
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		if p.GetContext().Err() != nil {
			return fmt.Errorf("click %q: %w", ctl.selector, err)
		}
		// Covered or zero-size pagers still respond to a DOM click.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return fmt.Errorf("click %q: %w", ctl.selector, err)
		}
	}

	if s.signature == "" {
		return p.WaitLoad()
	}
	return s.waitRowsChanged(p, s.signature)
}

// waitRowsChanged polls until the first data row differs from before. Eval
// errors are expected while a full navigation swaps the document and are
// treated as "not yet".
func (s *rodSession) waitRowsChanged(p *rod.Page, before string) error {
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		res, err := p.Eval(rowsChangedJS, s.table.Rows(), s.table.cellSelector(), before)
		if err == nil && res.Value.Bool() {
			return nil
		}
		select {
		case <-p.GetContext().Done():
			return fmt.Errorf("rows did not change after click: %w", p.GetContext().Err())
		case <-ticker.C:
		}
	}
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if err := s.page.Close(); err != nil {
			s.closeErr = err
		}
		// Disposes the incognito context, not the browser.
		if err := s.incognito.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
