package marks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const marksPanelHTML = `<div>
<table id="ctl00_Ajaxmastercontentplaceholder_WebPanel1">
<tr><th>Q.Num</th><th>1</th><th>2</th><th>3</th><th>Total</th></tr>
<tr><td>Main Valuation</td><td>7</td><td>6.5</td><td>8</td><td>21.5</td></tr>
</table>
</div>|8|hiddenField|__VIEWSTATE|vs|`

func TestExtract(t *testing.T) {
	rec, ok := Extract(marksPanelHTML)
	require.True(t, ok)
	require.Equal(t, []string{"Q.Num", "1", "2", "3", "Total"}, rec.Header)
	require.Equal(t, []string{"Main Valuation", "7", "6.5", "8", "21.5"}, rec.Values)
}

func TestExtractMissingPanel(t *testing.T) {
	_, ok := Extract(`<div>no marks rendered yet</div>`)
	require.False(t, ok)
}

func TestExtractIncompleteTable(t *testing.T) {
	_, ok := Extract(`<table id="ctl00_Ajaxmastercontentplaceholder_WebPanel1">
<tr><th>Q.Num</th><th>1</th></tr>
</table>`)
	require.False(t, ok)
}

func TestTableRendersAllCells(t *testing.T) {
	rec, ok := Extract(marksPanelHTML)
	require.True(t, ok)

	out := rec.Table()
	require.Contains(t, out, "Q.NUM")
	require.Contains(t, out, "Main Valuation")
	require.Contains(t, out, "21.5")
}
