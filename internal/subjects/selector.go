package subjects

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/aktudl/internal/portal"
)

const (
	examDropdownID = "ctl00_Ajaxmastercontentplaceholder_ddlexamname"
	subjectGridID  = "ctl00_Ajaxmastercontentplaceholder_GVASIDDetails"
)

type Selector struct {
	client *portal.Client
}

func NewSelector(c *portal.Client) *Selector {
	return &Selector{client: c}
}

// Courses loads the answer-script page and parses the exam-name
// dropdown. A missing dropdown means the session never authenticated:
// the login exchange reports nothing, this is where a bad password
// actually shows up.
func (s *Selector) Courses(ctx context.Context) ([]Course, error) {
	body, err := s.client.AnswerPage(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	dropdown := doc.Find("select#" + examDropdownID)
	if dropdown.Length() == 0 {
		return nil, fmt.Errorf("%w: exam dropdown missing", portal.ErrNotAuthenticated)
	}

	var out []Course
	dropdown.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value, ok := opt.Attr("value")
		name := strings.TrimSpace(opt.Text())
		if !ok || value == "" || name == "" {
			return
		}
		out = append(out, Course{Name: name, Value: value})
	})

	return out, nil
}

// FindCourse resolves a display name (e.g. "BTECH") to its dropdown
// entry.
func (s *Selector) FindCourse(ctx context.Context, name string) (Course, error) {
	courses, err := s.Courses(ctx)
	if err != nil {
		return Course{}, err
	}
	for _, c := range courses {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Course{}, fmt.Errorf("%w: %q", portal.ErrCourseNotFound, name)
}

// SelectCourse issues the dropdown-change partial postback and returns
// the delta payload carrying the subject grid. Hidden fields are
// re-scraped from a fresh page load, not carried over; the server
// rejects state older than the last full render.
func (s *Selector) SelectCourse(ctx context.Context, course Course) (string, error) {
	body, err := s.client.AnswerPage(ctx)
	if err != nil {
		return "", err
	}

	form := portal.ExtractFields(body)
	form.Merge(portal.State{
		portal.FieldEvalLevel: portal.EvalLevelMain,
		portal.FieldExamName:  course.Value,
		portal.FieldGoTo:      "",
		portal.FieldGoTo0:     "",
		portal.FieldScriptMgr: portal.AsyncTarget(portal.FieldExamName),
		"__ASYNCPOST":         "true",
	})

	return s.client.PostAsync(ctx, form)
}

// Subjects parses the answer-script grid out of a course-selection
// response. Rows missing a cell, the hidden row id or the trigger
// button are skipped, not fatal; a missing grid altogether is a
// protocol mismatch.
func (s *Selector) Subjects(body string) ([]Subject, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	grid := doc.Find("table#" + subjectGridID)
	if grid.Length() == 0 {
		return nil, fmt.Errorf("%w: subject grid missing", portal.ErrProtocolMismatch)
	}

	var out []Subject
	grid.Find("tr.rowstyle").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Find("span").Text())
		name := strings.TrimSpace(cells.Eq(1).Find("span").Text())
		asid, okID := cells.Eq(2).Find("input[type=hidden]").Attr("value")
		button, okBtn := cells.Eq(2).Find("input[type=image]").Attr("name")

		if code == "" || !okID || !okBtn {
			return
		}

		out = append(out, Subject{Code: code, Name: name, ASID: asid, Button: button})
	})

	return out, nil
}

// FindSubject resolves a subject code against a parsed listing.
func FindSubject(list []Subject, code string) (Subject, error) {
	for _, sub := range list {
		if strings.EqualFold(sub.Code, code) {
			return sub, nil
		}
	}
	return Subject{}, fmt.Errorf("%w: %q", portal.ErrSubjectNotFound, code)
}

// SelectSubject "clicks" the subject's row button via a partial
// postback. The form starts from the current response's hidden-field
// state (markup fields overlaid by delta updates) plus the fixed
// action fields and the constant image-button coordinates the server
// validates against.
func (s *Selector) SelectSubject(ctx context.Context, body string, sub Subject, course Course) (string, error) {
	form := portal.ExtractFields(body)
	form.Merge(portal.State{
		portal.FieldEvalLevel: portal.EvalLevelMain,
		portal.FieldExamName:  course.Value,
		portal.FieldScriptMgr: portal.AsyncTarget(sub.Button),
		"__EVENTTARGET":       "",
		"__EVENTARGUMENT":     "",
		"__ASYNCPOST":         "true",
		sub.Button + ".x":     "0",
		sub.Button + ".y":     "0",
	})

	return s.client.PostAsync(ctx, form)
}
