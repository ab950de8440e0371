package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/aktudl/internal/portal"
)

const testPrefix = "/AKTUSUMMER"

// pageBody renders a delta payload the way the portal answers a
// next-page postback: the update panel with the script image, possibly
// the next button, and the rolling hidden-field updates.
func pageBody(image string, idx int, hasNext bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `|1234|updatePanel|ctl00_Ajaxmastercontentplaceholder_UpdatepnlPrintStatus|`)
	if image != "" {
		fmt.Fprintf(&b, `<img id="ctl00_Ajaxmastercontentplaceholder_IMGAS" src="../ScriptImages/%s" />`, image)
	}
	if hasNext {
		b.WriteString(`<input type="image" id="ctl00_Ajaxmastercontentplaceholder_Next" name="ctl00$Ajaxmastercontentplaceholder$Next" />`)
	}
	fmt.Fprintf(&b, `|8|hiddenField|__VIEWSTATE|vs%d|8|hiddenField|__EVENTVALIDATION|ev%d|`, idx, idx)
	fmt.Fprintf(&b, `|8|hiddenField|ctl00$Ajaxmastercontentplaceholder$GVASIDDetails$ctl02$IbtnView.x|0|`)
	return b.String()
}

// fakePortal serves a scripted sequence of page bodies. bodies[0] is
// handed to Run directly; each next-page postback answers with the
// following entry.
type fakePortal struct {
	bodies []string
	images map[string][]byte
	broken map[string]bool

	mu    sync.Mutex
	posts []url.Values
	srv   *httptest.Server
}

func (p *fakePortal) start(t *testing.T) *portal.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(testPrefix+"/StudentServices/FrmAnswerScriptInitialPageView.aspx", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.mu.Lock()
		p.posts = append(p.posts, r.PostForm)
		idx := len(p.posts)
		p.mu.Unlock()
		require.Less(t, idx, len(p.bodies), "postback past the scripted sequence")
		_, _ = w.Write([]byte(p.bodies[idx]))
	})
	mux.HandleFunc(testPrefix+"/StudentServices/ScriptImages/", func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(r.URL.Path)
		if p.broken[name] {
			http.Error(w, "image store offline", http.StatusInternalServerError)
			return
		}
		data, ok := p.images[name]
		require.True(t, ok, "unexpected image request %q", name)
		_, _ = w.Write(data)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)

	client, err := portal.NewClient(portal.Options{
		BaseURL:    p.srv.URL,
		PathPrefix: testPrefix,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

type memorySink struct {
	pages []Page
}

func (s *memorySink) Accept(p Page) error {
	s.pages = append(s.pages, p)
	return nil
}

func (s *memorySink) Finalize(string) (string, error) { return "", nil }

func runEngine(t *testing.T, p *fakePortal, ceiling int) (Result, *memorySink, error) {
	t.Helper()

	client := p.start(t)
	eng := New(Options{Client: client, ExamValue: "BT2024", PageCeiling: ceiling})
	sink := &memorySink{}
	res, err := eng.Run(context.Background(), p.bodies[0], sink)
	return res, sink, err
}

func TestRunStopsOnRepeatedPage(t *testing.T) {
	p := &fakePortal{
		bodies: []string{
			pageBody("p1.png", 0, true),
			pageBody("p2.png", 1, true),
			pageBody("p3.png", 2, true),
			pageBody("p3.png", 3, true),
		},
		images: map[string][]byte{
			"p1.png": []byte("image-one"),
			"p2.png": []byte("image-two"),
			"p3.png": []byte("image-three"),
		},
	}

	res, sink, err := runEngine(t, p, 36)
	require.NoError(t, err)
	require.Equal(t, StopDuplicate, res.Reason)
	require.Equal(t, 3, res.Pages)
	require.Equal(t, int64(len("image-one")+len("image-two")+len("image-three")), res.Bytes)

	require.Len(t, sink.pages, 3)
	require.Equal(t, 1, sink.pages[0].Number)
	require.Equal(t, []byte("image-three"), sink.pages[2].Data)
}

func TestRunStopsAtCeiling(t *testing.T) {
	p := &fakePortal{
		bodies: []string{
			pageBody("p1.png", 0, true),
			pageBody("p2.png", 1, true),
		},
		images: map[string][]byte{
			"p1.png": []byte("image-one"),
			"p2.png": []byte("image-two"),
		},
	}

	res, sink, err := runEngine(t, p, 2)
	require.NoError(t, err)
	require.Equal(t, StopCeiling, res.Reason)
	require.Equal(t, 2, res.Pages)
	require.Len(t, sink.pages, 2)
	require.Len(t, p.posts, 1)
}

func TestRunStopsWhenNextButtonGone(t *testing.T) {
	p := &fakePortal{
		bodies: []string{
			pageBody("p1.png", 0, true),
			pageBody("p2.png", 1, false),
		},
		images: map[string][]byte{
			"p1.png": []byte("image-one"),
			"p2.png": []byte("image-two"),
		},
	}

	res, sink, err := runEngine(t, p, 36)
	require.NoError(t, err)
	require.Equal(t, StopNoNext, res.Reason)
	require.Equal(t, 2, res.Pages)
	require.Len(t, sink.pages, 2)
}

func TestRunNoImageOnFirstPageIsEmptyResult(t *testing.T) {
	p := &fakePortal{
		bodies: []string{pageBody("", 0, true)},
		images: map[string][]byte{},
	}

	res, sink, err := runEngine(t, p, 36)
	require.NoError(t, err)
	require.Equal(t, StopNoImage, res.Reason)
	require.Zero(t, res.Pages)
	require.Empty(t, sink.pages)
}

func TestRunFetchFailureKeepsEarlierPages(t *testing.T) {
	p := &fakePortal{
		bodies: []string{
			pageBody("p1.png", 0, true),
			pageBody("p2.png", 1, true),
		},
		images: map[string][]byte{
			"p1.png": []byte("image-one"),
			"p2.png": []byte("image-two"),
		},
		broken: map[string]bool{"p2.png": true},
	}

	res, sink, err := runEngine(t, p, 36)
	require.Error(t, err)
	require.Contains(t, err.Error(), "page 2")
	require.Equal(t, 1, res.Pages)
	require.Len(t, sink.pages, 1)
}

func TestNextPagePostbackCarriesRollingState(t *testing.T) {
	p := &fakePortal{
		bodies: []string{
			pageBody("p1.png", 0, true),
			pageBody("p1.png", 1, true),
		},
		images: map[string][]byte{"p1.png": []byte("image-one")},
	}

	_, _, err := runEngine(t, p, 36)
	require.NoError(t, err)

	require.Len(t, p.posts, 1)
	form := p.posts[0]
	require.Equal(t, "vs0", form.Get("__VIEWSTATE"))
	require.Equal(t, "ev0", form.Get("__EVENTVALIDATION"))
	require.Equal(t, portal.NextTrigger, form.Get("__EVENTTARGET"))
	require.Equal(t, "BT2024", form.Get("ctl00$Ajaxmastercontentplaceholder$ddlexamname"))
	require.Equal(t, portal.AsyncTarget(portal.NextTrigger), form.Get("ctl00$AjaxMstrScrpMngr"))
	require.Equal(t, "true", form.Get("__ASYNCPOST"))

	// coordinate fields echoed by the server must not ride along
	require.False(t, form.Has("ctl00$Ajaxmastercontentplaceholder$GVASIDDetails$ctl02$IbtnView.x"))
}

func TestDedupGuard(t *testing.T) {
	g := dedupGuard{}
	sum := hashPage([]byte("image-one"))

	require.False(t, g.seen(sum))
	g.add(sum)
	require.True(t, g.seen(sum))
	require.False(t, g.seen(hashPage([]byte("image-two"))))
	require.Equal(t, sum, hashPage([]byte("image-one")))
}
