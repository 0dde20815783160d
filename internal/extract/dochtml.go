package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/footnote/backend/internal/model"
)

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// DocHTML extracts a Google-Docs-shaped HTML export into TextBlocks:
// headings maintain a stack (popping entries at or below the new
// heading's level), paragraphs nested under a heading tag are skipped,
// top-level lists render as "- item" lines, and tables render as
// pipe-delimited rows. Grounded on the heading-stack walk of the original
// HTML extractor.
func DocHTML(htmlContent string) (Document, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return Document{}, err
	}

	d := &docWalker{}
	d.walk(root)

	title := d.title
	if title == "" {
		for _, b := range d.blocks {
			if b.Location.ElementType == model.ElementHeading {
				title = b.Text
				break
			}
		}
	}
	return Document{Title: title, Blocks: d.blocks}, nil
}

type headingFrame struct {
	level int
	text  string
}

type docWalker struct {
	title     string
	headings  []headingFrame
	blocks    []TextBlock
	paraIndex int
}

func (d *docWalker) headingPath() string {
	parts := make([]string, len(d.headings))
	for i, h := range d.headings {
		parts[i] = h.text
	}
	return strings.Join(parts, " > ")
}

func (d *docWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if d.title == "" {
				d.title = textOf(n)
			}
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := strings.TrimSpace(textOf(n))
			if text == "" {
				return
			}
			level := headingLevels[n.Data]
			kept := d.headings[:0:0]
			for _, h := range d.headings {
				if h.level < level {
					kept = append(kept, h)
				}
			}
			d.headings = append(kept, headingFrame{level: level, text: text})
			path := d.headingPath()
			d.blocks = append(d.blocks, TextBlock{
				Text: text,
				Location: model.Location{
					Kind:         model.LocationDoc,
					HeadingPath:  path,
					ElementType:  model.ElementHeading,
					HeadingLevel: level,
				},
				HeadingContext: path,
			})
			return
		case "p":
			if hasHeadingAncestor(n) {
				return
			}
			text := strings.TrimSpace(textOf(n))
			if text == "" {
				return
			}
			path := d.headingPath()
			d.blocks = append(d.blocks, TextBlock{
				Text: text,
				Location: model.Location{
					Kind:        model.LocationDoc,
					HeadingPath: path,
					ElementType: model.ElementParagraph,
					ParaIndex:   d.paraIndex,
				},
				HeadingContext: path,
			})
			d.paraIndex++
			return
		case "ul", "ol":
			if hasListAncestor(n) {
				return
			}
			text := listText(n)
			if text == "" {
				return
			}
			path := d.headingPath()
			d.blocks = append(d.blocks, TextBlock{
				Text: text,
				Location: model.Location{
					Kind:        model.LocationDoc,
					HeadingPath: path,
					ElementType: model.ElementList,
					ParaIndex:   d.paraIndex,
				},
				HeadingContext: path,
			})
			d.paraIndex++
			return
		case "table":
			text := tableText(n)
			if text == "" {
				return
			}
			path := d.headingPath()
			d.blocks = append(d.blocks, TextBlock{
				Text: text,
				Location: model.Location{
					Kind:        model.LocationDoc,
					HeadingPath: path,
					ElementType: model.ElementTable,
					ParaIndex:   d.paraIndex,
				},
				HeadingContext: path,
			})
			d.paraIndex++
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c)
	}
}

func hasHeadingAncestor(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if _, ok := headingLevels[p.Data]; ok {
				return true
			}
		}
	}
	return false
}

func hasListAncestor(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && (p.Data == "ul" || p.Data == "ol") {
			return true
		}
	}
	return false
}

func listText(n *html.Node) string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			text := strings.TrimSpace(textOf(c))
			if text != "" {
				items = append(items, "- "+text)
			}
		}
	}
	return strings.Join(items, "\n")
}

func tableText(n *html.Node) string {
	var rows []string
	var walkRows func(*html.Node)
	walkRows = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						cells = append(cells, strings.TrimSpace(textOf(cell)))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			}
			walkRows(c)
		}
	}
	walkRows(n)
	return strings.Join(rows, "\n")
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
