package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/model"
)

func TestDocHTML_TitleFromTitleTag(t *testing.T) {
	doc, err := DocHTML(`<html><head><title>My Doc</title></head><body><p>hello</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "My Doc", doc.Title)
}

func TestDocHTML_TitleFallsBackToFirstH1(t *testing.T) {
	doc, err := DocHTML(`<html><body><h1>Heading One</h1><p>text</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Heading One", doc.Title)
}

func TestDocHTML_HeadingStackAndParagraphContext(t *testing.T) {
	html := `<html><body>
		<h1>Top</h1>
		<p>intro</p>
		<h2>Child</h2>
		<p>nested content</p>
		<h1>Second Top</h1>
		<p>after reset</p>
	</body></html>`

	doc, err := DocHTML(html)
	require.NoError(t, err)

	var paragraphs []TextBlock
	for _, b := range doc.Blocks {
		if b.Location.ElementType == model.ElementParagraph {
			paragraphs = append(paragraphs, b)
		}
	}
	require.Len(t, paragraphs, 3)
	assert.Equal(t, "Top", paragraphs[0].Location.HeadingPath)
	assert.Equal(t, "Top > Child", paragraphs[1].Location.HeadingPath)
	assert.Equal(t, "Second Top", paragraphs[2].Location.HeadingPath, "a new h1 pops the entire stack")
}

func TestDocHTML_ParagraphInsideHeadingIsSkipped(t *testing.T) {
	html := `<html><body><h1>Title<p>should not appear</p></h1></body></html>`
	doc, err := DocHTML(html)
	require.NoError(t, err)
	for _, b := range doc.Blocks {
		assert.NotEqual(t, model.ElementParagraph, b.Location.ElementType)
	}
}

func TestDocHTML_ListRendersAsDashItems(t *testing.T) {
	html := `<html><body><ul><li>one</li><li>two</li></ul></body></html>`
	doc, err := DocHTML(html)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "- one\n- two", doc.Blocks[0].Text)
}

func TestDocHTML_TableRendersPipeDelimited(t *testing.T) {
	html := `<html><body><table><tr><td>a</td><td>b</td></tr></table></body></html>`
	doc, err := DocHTML(html)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "a | b", doc.Blocks[0].Text)
}

func TestDocHTML_EmptyElementsSkipped(t *testing.T) {
	html := `<html><body><h2></h2><p>  </p><p>kept</p></body></html>`
	doc, err := DocHTML(html)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "kept", doc.Blocks[0].Text)
}
