package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/tdh8316/profilescan/internal/classify"
	"github.com/tdh8316/profilescan/internal/httpx"
	"github.com/tdh8316/profilescan/internal/model"
	"github.com/tdh8316/profilescan/internal/platforms"
)

// Prober issues one request per platform and turns every outcome, including
// transport failures, into a model.Result.
type Prober struct {
	client httpx.Doer
	cfg    ProberConfig

	// Cache compiled regexCheck per site
	regexCache    sync.Map // siteName -> *regexp2.Regexp
	regexErrCache sync.Map // siteName -> error
}

func NewProber(client httpx.Doer, cfg ProberConfig) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpx.DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	if cfg.UserAgent == nil {
		cfg.UserAgent = httpx.RandomUserAgent
	}
	return &Prober{client: client, cfg: cfg}
}

func (p *Prober) Probe(ctx context.Context, username string, pl platforms.Platform) model.Result {
	res := model.Result{
		Site:   pl.Name,
		URL:    model.NoURL,
		Status: model.VerdictError,
	}

	target, ok := resolveURL(pl.URL, username)
	if !ok {
		return res
	}
	res.URL = target

	// Optional username regexCheck (cached per site).
	if pl.RegexCheck != "" {
		re, err := p.getRegex(pl.Name, pl.RegexCheck)
		if err != nil {
			return res
		}
		matched, err := re.MatchString(username)
		if err != nil {
			return res
		}
		if !matched {
			// The site cannot host this username.
			res.Status = model.VerdictNotFound
			return res
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	fail := func(err error) model.Result {
		res.Status = model.VerdictError
		if isTimeout(err) {
			res.Status = model.VerdictTimeout
		}
		res.URL = target
		res.HTTPCode = 0
		res.ResponseTime = elapsedSince(start)
		return res
	}

	req, err := httpx.NewRequest(ctx, http.MethodGet, target, nil, p.cfg.UserAgent())
	if err != nil {
		return fail(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := httpx.ReadBody(resp, p.cfg.MaxBodyBytes)
	if err != nil {
		return fail(err)
	}
	res.ResponseTime = elapsedSince(start)

	if resp.Request != nil && resp.Request.URL != nil {
		res.URL = resp.Request.URL.String()
	}
	res.HTTPCode = resp.StatusCode
	res.Status = classify.Classify(resp.StatusCode, body, classify.Title(body))
	return res
}

// resolveURL fills the single "{}" slot of tmpl. Templates with no slot or
// several, and results that are not absolute URLs, are rejected.
func resolveURL(tmpl, username string) (string, bool) {
	if tmpl == "" || strings.Count(tmpl, "{}") != 1 {
		return "", false
	}
	target := strings.Replace(tmpl, "{}", username, 1)
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return target, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func elapsedSince(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}

func (p *Prober) getRegex(site, expr string) (*regexp2.Regexp, error) {
	if v, ok := p.regexCache.Load(site); ok {
		return v.(*regexp2.Regexp), nil
	}
	if v, ok := p.regexErrCache.Load(site); ok {
		return nil, v.(error)
	}

	re, err := regexp2.Compile(expr, 0)
	if err != nil {
		err = fmt.Errorf("invalid regexCheck: %w", err)
		p.regexErrCache.Store(site, err)
		return nil, err
	}
	p.regexCache.Store(site, re)
	return re, nil
}
