// internal/dom/domtest/css_test.go
package domtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

const cssFixture = `<html><body>
<div class="panel-body" id="panel">
	<div class="form-group required">
		<label for="a">A</label>
		<input id="a" type="text" name="a"/>
	</div>
	<select id="b" name="b"><option value="1">uno</option></select>
	<a id="tg" data-toggle="collapse" href="#sec">toggle</a>
	<div id="sec" class="collapse in"><textarea id="c"></textarea></div>
</div>
<div class="otros"><input id="fuera" type="text"/></div>
</body></html>`

func ids(t *testing.T, els []dom.Element) []string {
	t.Helper()
	out := make([]string, 0, len(els))
	for _, el := range els {
		id, _, err := el.Attr(context.Background(), "id")
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func TestSelectByTagIDClassAttr(t *testing.T) {
	page := NewPage(cssFixture)
	ctx := context.Background()

	cases := []struct {
		selector string
		want     []string
	}{
		{"#panel", []string{"panel"}},
		{"input", []string{"a", "fuera"}},
		{".form-group", []string{""}},
		{"div.panel-body", []string{"panel"}},
		{"[data-toggle='collapse']", []string{"tg"}},
		{"[data-toggle]", []string{"tg"}},
		{"div.panel-body input", []string{"a"}},
		{"input, textarea, select", []string{"a", "b", "c", "fuera"}},
		{".collapse.in textarea", []string{"c"}},
		{"#nope", nil},
	}
	for _, tc := range cases {
		els, err := page.FindAll(ctx, dom.CSS(tc.selector))
		require.NoError(t, err, tc.selector)
		got := ids(t, els)
		if tc.want == nil {
			assert.Empty(t, got, tc.selector)
			continue
		}
		assert.Equal(t, tc.want, got, tc.selector)
	}
}

func TestSelectScopedToElement(t *testing.T) {
	page := NewPage(cssFixture)
	ctx := context.Background()

	panel, err := page.Find(ctx, dom.CSS("#panel"))
	require.NoError(t, err)

	els, err := panel.FindAll(ctx, dom.CSS("input, textarea, select"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(t, els), "the scope's own subtree only")
}

func TestXPathRelativeAxes(t *testing.T) {
	page := NewPage(cssFixture)
	ctx := context.Background()

	input, err := page.Find(ctx, dom.CSS("#a"))
	require.NoError(t, err)

	label, err := input.Find(ctx, dom.XPath(`ancestor::div[contains(@class,'form-group')][1]//label`))
	require.NoError(t, err)
	text, err := label.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", text)
}

func TestStaleHandleAfterDocumentSwap(t *testing.T) {
	page := NewPage(cssFixture)
	ctx := context.Background()

	input, err := page.Find(ctx, dom.CSS("#a"))
	require.NoError(t, err)

	page.SetHTML(`<html><body><p>otra página</p></body></html>`)

	_, err = input.Tag(ctx)
	assert.ErrorIs(t, err, dom.ErrNotFound)
	err = input.Click(ctx)
	assert.ErrorIs(t, err, dom.ErrNotFound)
}

func TestVisibilitySemantics(t *testing.T) {
	page := NewPage(`<html><body>
<input id="hid" type="hidden"/>
<div style="display: none"><input id="inNone" type="text"/></div>
<div hidden><input id="inHidden" type="text"/></div>
<div class="collapse"><input id="collapsed" type="text"/></div>
<div class="collapse in"><input id="opened" type="text"/></div>
<input id="plain" type="text"/>
</body></html>`)
	ctx := context.Background()

	cases := map[string]bool{
		"#hid":       false,
		"#inNone":    false,
		"#inHidden":  false,
		"#collapsed": false,
		"#opened":    true,
		"#plain":     true,
	}
	for sel, want := range cases {
		el, err := page.Find(ctx, dom.CSS(sel))
		require.NoError(t, err, sel)
		visible, err := el.Visible(ctx)
		require.NoError(t, err, sel)
		assert.Equal(t, want, visible, sel)
	}
}
