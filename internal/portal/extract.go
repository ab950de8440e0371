package portal

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Control names pinned to the deployed portal build. A rename on the
// server side shows up as ErrProtocolMismatch at runtime.
const (
	FieldEvalLevel = "ctl00$Ajaxmastercontentplaceholder$DdlEvalLevel"
	FieldExamName  = "ctl00$Ajaxmastercontentplaceholder$ddlexamname"
	FieldScriptMgr = "ctl00$AjaxMstrScrpMngr"
	FieldGoTo      = "ctl00$Ajaxmastercontentplaceholder$TxtGoTo"
	FieldGoTo0     = "ctl00$Ajaxmastercontentplaceholder$TxtGoTo0"

	NextTrigger = "ctl00$Ajaxmastercontentplaceholder$Next"

	EvalLevelMain = "Main Valuation"

	updatePanel  = "ctl00$Ajaxmastercontentplaceholder$UpdatepnlPrintStatus"
	imageID      = "ctl00_Ajaxmastercontentplaceholder_IMGAS"
	nextMarkerID = "ctl00_Ajaxmastercontentplaceholder_Next"
)

// AsyncTarget builds the script-manager value naming the update panel
// and the control that triggered the partial postback.
func AsyncTarget(trigger string) string {
	return updatePanel + "|" + trigger
}

// Partial postbacks answer with a pipe-delimited delta stream; hidden
// field updates travel as |hiddenField|NAME|VALUE| entries.
var deltaFieldRe = regexp.MustCompile(`\|hiddenField\|([^|]+)\|([^|]*)`)

// ExtractFields pulls hidden form state out of a portal response. It
// copes with both full HTML documents and delta payloads: any
// <input type=hidden> found in markup is collected first, then delta
// entries override them. Unknown fields are carried along untouched;
// the server occasionally plants extras it wants echoed back.
func ExtractFields(body string) State {
	st := State{}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		doc.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
			name, ok := in.Attr("name")
			if !ok || name == "" {
				return
			}
			st[name] = in.AttrOr("value", "")
		})
	}

	for _, m := range deltaFieldRe.FindAllStringSubmatch(body, -1) {
		st[m[1]] = m[2]
	}

	return st
}

// ExtractImageLocator finds the answer-sheet image in the current
// response and resolves its relative src against root (the student
// services directory). A missing marker is reported as ErrNoImage,
// distinct from any transport failure.
func ExtractImageLocator(body string, root *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	src, ok := doc.Find("img#" + imageID).Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", ErrNoImage
	}

	src = strings.TrimPrefix(src, "../")
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("image src %q: %w", src, err)
	}

	return root.ResolveReference(ref).String(), nil
}

// HasNext reports whether the response still renders the next-page
// button. Its absence is one of the two end-of-document signals (the
// other being a repeated page image).
func HasNext(body string) bool {
	return strings.Contains(body, nextMarkerID)
}
