// Package downloader drives the page-retrieval loop of one answer
// script: extract the image locator from the latest response, fetch
// the image, hash it against what the run has already seen, hand it to
// the sink and fire the next-page postback. The portal never says
// "last page"; it re-serves the final page instead, so a repeated
// hash is the terminal signal.
package downloader

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/aktudl/internal/portal"
	"github.com/brogergvhs/aktudl/internal/ui"
)

// StopReason records why a pagination run terminated.
type StopReason int

const (
	// StopDuplicate: the portal served a page already retrieved in
	// this run, the end-of-document signal.
	StopDuplicate StopReason = iota
	// StopNoNext: the response no longer renders a next-page button.
	StopNoNext
	// StopCeiling: the configured page ceiling was reached with the
	// next-page button still present.
	StopCeiling
	// StopNoImage: the current page carried no script image. Fatal
	// for the page; everything fetched before it is kept.
	StopNoImage
)

func (r StopReason) String() string {
	switch r {
	case StopDuplicate:
		return "duplicate page"
	case StopNoNext:
		return "no next page"
	case StopCeiling:
		return "page ceiling reached"
	case StopNoImage:
		return "no image on page"
	}
	return "unknown"
}

// dedupGuard is the set of content hashes retrieved so far in one run.
// Each run owns a fresh instance; nothing is shared across subjects.
type dedupGuard map[string]struct{}

func (g dedupGuard) seen(sum string) bool {
	_, ok := g[sum]
	return ok
}

func (g dedupGuard) add(sum string) {
	g[sum] = struct{}{}
}

func hashPage(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type Options struct {
	Client *portal.Client
	// ExamValue is the selected course's dropdown value, echoed on
	// every next-page postback.
	ExamValue string
	// PageCeiling caps the run; the portal renders a next button even
	// on documents it would serve forever.
	PageCeiling int
	// PageDelay is the mandatory pause between successive page
	// fetches. Zero disables pacing (tests only).
	PageDelay time.Duration

	Progress *ui.ProgressHandle
	DebugLogger interface {
		Debugf(string, ...any)
	}
}

type Engine struct {
	client  *portal.Client
	exam    string
	ceiling int
	delay   time.Duration

	progress *ui.ProgressHandle
	log      interface{ Debugf(string, ...any) }
}

func New(opts Options) *Engine {
	ceiling := opts.PageCeiling
	if ceiling < 1 {
		ceiling = 1
	}
	return &Engine{
		client:   opts.Client,
		exam:     opts.ExamValue,
		ceiling:  ceiling,
		delay:    opts.PageDelay,
		progress: opts.Progress,
		log:      opts.DebugLogger,
	}
}

// Result summarizes one pagination run. Pages excludes the detected
// duplicate.
type Result struct {
	Pages  int
	Bytes  int64
	Reason StopReason
}

// Run pages through the script starting from the subject-selection
// response. It is strictly sequential: every postback depends on the
// hidden-field state of the previous response. Errors abort the run
// with everything accepted so far preserved in the sink; a missing
// image on the very first page is not an error, just an empty result.
func (e *Engine) Run(ctx context.Context, initial string, sink Sink) (Result, error) {
	var res Result
	seen := dedupGuard{}
	body := initial

	for {
		locator, err := portal.ExtractImageLocator(body, e.client.ServicesRoot())
		if errors.Is(err, portal.ErrNoImage) {
			res.Reason = StopNoImage
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("page %d: %w", res.Pages+1, err)
		}

		data, err := e.client.FetchBinary(ctx, locator)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", res.Pages+1, err)
		}

		sum := hashPage(data)
		if seen.seen(sum) {
			if e.log != nil {
				e.log.Debugf("page %d repeats %s, stopping\n", res.Pages+1, sum)
			}
			res.Reason = StopDuplicate
			return res, nil
		}
		seen.add(sum)

		page := Page{Number: res.Pages + 1, Data: data, Hash: sum}
		if err := sink.Accept(page); err != nil {
			return res, fmt.Errorf("page %d: sink: %w", page.Number, err)
		}

		res.Pages = page.Number
		res.Bytes += int64(len(data))
		if e.progress != nil {
			e.progress.Update(res.Pages, e.ceiling, res.Bytes)
		}

		if !portal.HasNext(body) {
			res.Reason = StopNoNext
			return res, nil
		}
		if res.Pages >= e.ceiling {
			res.Reason = StopCeiling
			return res, nil
		}

		if e.delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(e.delay):
			}
		}

		body, err = e.nextPage(ctx, body)
		if err != nil {
			return res, fmt.Errorf("page %d: advance: %w", res.Pages, err)
		}
	}
}

// nextPage fires the next-button postback carrying the freshest
// hidden-field state scraped from the current response.
func (e *Engine) nextPage(ctx context.Context, body string) (string, error) {
	form := portal.ExtractFields(body)
	form.Merge(portal.State{
		portal.FieldEvalLevel: portal.EvalLevelMain,
		portal.FieldExamName:  e.exam,
		portal.FieldScriptMgr: portal.AsyncTarget(portal.NextTrigger),
		"__EVENTTARGET":       portal.NextTrigger,
		"__EVENTARGUMENT":     "",
		"__ASYNCPOST":         "true",
	})
	portal.StripCoordinates(form)

	return e.client.PostAsync(ctx, form)
}
