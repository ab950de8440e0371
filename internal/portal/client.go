package portal

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// Portal page layout, relative to the base URL + path prefix.
const (
	loginPath        = "/frmIntelliHomePage.aspx"
	postLoginPath    = "/LoginScreens/Default.aspx"
	redirectPath     = "/LoginScreens/frmMasterpageRedirect.aspx"
	answerPath       = "/StudentServices/FrmAnswerScriptInitialPageView.aspx"
	servicesDir      = "/StudentServices/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:144.0) Gecko/20100101 Firefox/144.0"
)

type Options struct {
	// BaseURL is the portal origin, e.g. https://aktuexams.in.
	BaseURL string
	// PathPrefix is the per-session deployment root, e.g. /AKTUSUMMER.
	PathPrefix string
	UserAgent  string
	Timeout    time.Duration

	DebugLogger interface {
		Debugf(string, ...any)
	}
}

// Client owns one authenticated portal session: the cookie jar, the
// fixed browser header set and the base URL every postback targets.
// All exchanges within a run go through the same Client; the server
// keeps exactly one live form state per session, so mutating requests
// must stay sequential.
type Client struct {
	base   *url.URL
	prefix string
	http   *resty.Client
	log    interface{ Debugf(string, ...any) }
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	hc := resty.New()
	hc.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/") + opts.PathPrefix)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc.SetCookieJar(jar)
	hc.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(hc.GetClient().Transport)

	hc.SetHeader("User-Agent", ua)
	hc.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	hc.SetHeader("Accept-Language", "en-US,en;q=0.5")
	hc.SetTimeout(timeout)

	c := &Client{
		base:   base,
		prefix: opts.PathPrefix,
		http:   hc,
		log:    opts.DebugLogger,
	}

	if c.log != nil {
		c.log.Debugf("portal client ready (base=%s, timeout=%s)\n", hc.BaseURL, timeout)
	}

	return c, nil
}

func (c *Client) abs(path string) string {
	return strings.TrimSuffix(c.base.String(), "/") + c.prefix + path
}

// AnswerURL is the absolute answer-script page address, used as the
// Referer on every AJAX postback and image fetch.
func (c *Client) AnswerURL() string {
	return c.abs(answerPath)
}

// ServicesRoot is the directory relative image paths resolve against.
func (c *Client) ServicesRoot() *url.URL {
	u, _ := url.Parse(c.abs(servicesDir))
	return u
}

// Get performs a full-page load and returns the raw HTML.
func (c *Client) Get(ctx context.Context, path, referer string) (string, error) {
	req := c.http.R().SetContext(ctx)
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	res, err := req.Get(path)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("GET %s: HTTP %d", path, res.StatusCode())
	}

	return res.String(), nil
}

// PostForm performs a regular full-page form submission.
func (c *Client) PostForm(ctx context.Context, path string, form State, referer string) (string, error) {
	req := c.http.R().SetContext(ctx).SetFormData(form)
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	res, err := req.Post(path)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("POST %s: HTTP %d", path, res.StatusCode())
	}

	return res.String(), nil
}

// PostAsync performs a partial postback against the answer-script page
// with the MicrosoftAjax header contract and returns the delta payload.
func (c *Client) PostAsync(ctx context.Context, form State) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.AnswerURL()).
		SetHeader("X-MicrosoftAjax", "Delta=true").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=utf-8").
		SetHeader("Accept", "*/*").
		SetFormData(form).
		Post(answerPath)
	if err != nil {
		return "", fmt.Errorf("postback %s: %w", answerPath, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("postback %s: HTTP %d", answerPath, res.StatusCode())
	}

	return res.String(), nil
}

// FetchBinary downloads binary content from an absolute URL within the
// session, typically a page image resolved by ExtractImageLocator.
func (c *Client) FetchBinary(ctx context.Context, absURL string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.AnswerURL()).
		Get(absURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", absURL, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("GET %s: HTTP %d", absURL, res.StatusCode())
	}

	return res.Body(), nil
}
