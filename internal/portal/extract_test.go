package portal

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const loginPageHTML = `<!DOCTYPE html>
<html><body>
<form method="post" action="./frmIntelliHomePage.aspx" id="form1">
<input type="hidden" name="__EVENTTARGET" id="__EVENTTARGET" value="" />
<input type="hidden" name="__EVENTARGUMENT" id="__EVENTARGUMENT" value="" />
<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="dDwtMTA5MjIxNTc2Mjt0PDtsPGk8MT47PjtsPHQ8" />
<input type="hidden" name="__VIEWSTATEGENERATOR" id="__VIEWSTATEGENERATOR" value="CA0B0334" />
<input type="hidden" name="__PREVIOUSPAGE" id="__PREVIOUSPAGE" value="prevPageToken123" />
<input type="hidden" name="__EVENTVALIDATION" id="__EVENTVALIDATION" value="/wEWBAKUi5O2DQLs0bLrBgKM54rGBg" />
<input name="txtUserID" type="text" id="txtUserID" />
<input name="txtPasswrd" type="password" id="txtPasswrd" />
</form>
</body></html>`

const deltaPayload = `123|updatePanel|ctl00_Ajaxmastercontentplaceholder_UpdatepnlPrintStatus|<div>partial</div>|` +
	`8|hiddenField|__VIEWSTATE|newViewState99|` +
	`8|hiddenField|__EVENTVALIDATION|newValidation42|` +
	`8|hiddenField|__VIEWSTATEGENERATOR|CA0B0334|`

func TestExtractFieldsFullHTML(t *testing.T) {
	st := ExtractFields(loginPageHTML)

	require.Equal(t, "dDwtMTA5MjIxNTc2Mjt0PDtsPGk8MT47PjtsPHQ8", st["__VIEWSTATE"])
	require.Equal(t, "CA0B0334", st["__VIEWSTATEGENERATOR"])
	require.Equal(t, "prevPageToken123", st["__PREVIOUSPAGE"])
	require.Equal(t, "/wEWBAKUi5O2DQLs0bLrBgKM54rGBg", st["__EVENTVALIDATION"])

	// visible inputs are not session state
	require.NotContains(t, st, "txtUserID")
}

func TestExtractFieldsDeltaPayload(t *testing.T) {
	st := ExtractFields(deltaPayload)

	require.Equal(t, "newViewState99", st["__VIEWSTATE"])
	require.Equal(t, "newValidation42", st["__EVENTVALIDATION"])
	require.Equal(t, "CA0B0334", st["__VIEWSTATEGENERATOR"])
}

func TestExtractFieldsDeltaOverridesMarkup(t *testing.T) {
	mixed := `<input type="hidden" name="__VIEWSTATE" value="staleFromMarkup" />` +
		`<input type="hidden" name="hdnCnfStatus" value="kept" />` +
		`|hiddenField|__VIEWSTATE|freshFromDelta|`

	st := ExtractFields(mixed)

	require.Equal(t, "freshFromDelta", st["__VIEWSTATE"])
	require.Equal(t, "kept", st["hdnCnfStatus"])
}

func TestMergeRetainsMissingFields(t *testing.T) {
	st := State{
		"__VIEWSTATE":    "old",
		"__PREVIOUSPAGE": "keepMe",
	}

	// delta payload without __PREVIOUSPAGE must not blank it
	st.Merge(ExtractFields(`|hiddenField|__VIEWSTATE|new|`))

	require.Equal(t, "new", st["__VIEWSTATE"])
	require.Equal(t, "keepMe", st["__PREVIOUSPAGE"])
}

func TestRequireReportsProtocolMismatch(t *testing.T) {
	st := State{"__VIEWSTATE": "x"}

	err := st.Require("__VIEWSTATE", "__EVENTVALIDATION")
	require.ErrorIs(t, err, ErrProtocolMismatch)
	require.Contains(t, err.Error(), "__EVENTVALIDATION")

	require.NoError(t, st.Require("__VIEWSTATE"))
}

func TestStripCoordinates(t *testing.T) {
	st := State{
		"__VIEWSTATE": "vs",
		"ctl00$Ajaxmastercontentplaceholder$BtnASID0.x": "0",
		"ctl00$Ajaxmastercontentplaceholder$BtnASID0.y": "0",
	}

	StripCoordinates(st)

	require.Equal(t, State{"__VIEWSTATE": "vs"}, st)
}

func TestExtractImageLocator(t *testing.T) {
	root, err := url.Parse("https://portal.test/AKTUSUMMER/StudentServices/")
	require.NoError(t, err)

	body := `12|updatePanel|x|<img id="ctl00_Ajaxmastercontentplaceholder_IMGAS" src="../ScriptImages/IMG_0007.png" />|`
	loc, err := ExtractImageLocator(body, root)
	require.NoError(t, err)
	require.Equal(t, "https://portal.test/AKTUSUMMER/StudentServices/ScriptImages/IMG_0007.png", loc)
}

func TestExtractImageLocatorMissing(t *testing.T) {
	root, _ := url.Parse("https://portal.test/AKTUSUMMER/StudentServices/")

	_, err := ExtractImageLocator(`<div>no image panel here</div>`, root)
	require.ErrorIs(t, err, ErrNoImage)
}

func TestHasNext(t *testing.T) {
	require.True(t, HasNext(`<input type="image" id="ctl00_Ajaxmastercontentplaceholder_Next" />`))
	require.False(t, HasNext(`<div>last page</div>`))
}
