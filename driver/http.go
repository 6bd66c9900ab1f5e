package driver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/models"
	"golang.org/x/net/html"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps a single page download.
const maxBody = 10 << 20

// HTTPLauncher drives server-rendered tables without a browser. Pages are
// fetched with a Chrome TLS fingerprint; "clicking" a next control follows
// its href.
type HTTPLauncher struct {
	cfg config.BrowserConfig
}

// NewHTTPLauncher creates a launcher for static HTML sessions.
func NewHTTPLauncher(cfg config.BrowserConfig) *HTTPLauncher {
	return &HTTPLauncher{cfg: cfg}
}

func (l *HTTPLauncher) Name() string { return "http" }

// NewSession creates a session with its own connection pool and cookie-free
// client, so sessions share nothing.
func (l *HTTPLauncher) NewSession(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpSession{
		client:    newChromeClient(l.cfg.DefaultProxy),
		clickWait: l.cfg.ClickWait,
		lang:      l.cfg.AcceptLanguage,
	}, nil
}

func (l *HTTPLauncher) Close() error { return nil }

// newChromeClient builds an HTTP/1.1 client whose TLS ClientHello mimics Chrome.
func newChromeClient(proxy string) *http.Client {
	transport := &http.Transport{
		DialTLSContext: dialTLSChrome,
		// utls negotiates h1 only through DialTLSContext.
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only, since Go's http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec = func() *tls.ClientHelloSpec {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return &spec
}()

// dialTLSChrome establishes a TLS connection using the Chrome fingerprint.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	var tlsConn *tls.UConn
	if chromeH1Spec != nil {
		tlsConn = tls.UClient(rawConn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(chromeH1Spec); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("utls: apply spec: %w", err)
		}
	} else {
		tlsConn = tls.UClient(rawConn, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloGolang)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

type httpSession struct {
	client    *http.Client
	clickWait time.Duration
	lang      string

	mu      sync.Mutex
	current *url.URL
	doc     *goquery.Document
}

type htmlControl struct {
	sel      *goquery.Selection
	selector string
}

func (c *htmlControl) Selector() string { return c.selector }

func (s *httpSession) Goto(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	return s.load(ctx, u)
}

func (s *httpSession) load(ctx context.Context, u *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if s.lang != "" {
		req.Header.Set("Accept-Language", s.lang)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch %s: HTTP %d", u, resp.StatusCode)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("parse %s: %w", u, err)
	}

	s.mu.Lock()
	s.current = resp.Request.URL
	s.doc = goquery.NewDocumentFromNode(root)
	s.mu.Unlock()
	return nil
}

func (s *httpSession) document() (*goquery.Document, *url.URL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.current
}

// WaitForSelector checks the loaded document. Static HTML never changes after
// load, so there is nothing to wait for.
func (s *httpSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, _ := s.document()
	if doc == nil {
		return fmt.Errorf("%w: %q: no page loaded", ErrNotFound, selector)
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return nil
}

func (s *httpSession) ExtractRows(ctx context.Context, table TableSpec) ([]models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, _ := s.document()
	if doc == nil {
		return nil, fmt.Errorf("extract rows: no page loaded")
	}
	return ParseRows(doc.Selection, table), nil
}

func (s *httpSession) FindNextControl(ctx context.Context, selectors []string) (Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, _ := s.document()
	if doc == nil {
		return nil, nil
	}
	for _, sel := range selectors {
		if match := doc.Find(sel).First(); match.Length() > 0 {
			return &htmlControl{sel: match, selector: sel}, nil
		}
	}
	return nil, nil
}

func (s *httpSession) IsDisabled(_ context.Context, c Control) (bool, error) {
	ctl, ok := c.(*htmlControl)
	if !ok {
		return false, fmt.Errorf("http: foreign control %T", c)
	}
	if _, ok := ctl.sel.Attr("disabled"); ok {
		return true, nil
	}
	if v, _ := ctl.sel.Attr("aria-disabled"); v == "true" {
		return true, nil
	}
	if ctl.sel.HasClass("disabled") || ctl.sel.Parent().HasClass("disabled") {
		return true, nil
	}
	// Without a followable href the control cannot lead anywhere.
	_, ok = navigableHref(ctl.sel)
	return !ok, nil
}

func (s *httpSession) Click(ctx context.Context, c Control) error {
	ctl, ok := c.(*htmlControl)
	if !ok {
		return fmt.Errorf("http: foreign control %T", c)
	}
	href, ok := navigableHref(ctl.sel)
	if !ok {
		return fmt.Errorf("click %q: control has no navigable href", ctl.selector)
	}

	_, current := s.document()
	target, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("click %q: parse href: %w", ctl.selector, err)
	}
	if current != nil {
		target = current.ResolveReference(target)
	}

	if s.clickWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.clickWait)
		defer cancel()
	}
	return s.load(ctx, target)
}

func navigableHref(sel *goquery.Selection) (string, bool) {
	href, ok := sel.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	return href, true
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
