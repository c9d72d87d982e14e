// Package blog builds the article detail view.
package blog

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Article is the render model of the detail page.
type Article struct {
	Title    string
	Subtitle string
	Banner   string
	Tags     []string
	Date     string
	Likes    int
	Comments int
	Share    string
	Body     string
}

const articleBody = `Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor
incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud
exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.

Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat
nulla pariatur. Excepteur sint occaecat cupidatat non proident, sunt in culpa qui
officia deserunt mollit anim id est laborum.

Sed ut perspiciatis unde omnis iste natus error sit voluptatem accusantium doloremque
laudantium, totam rem aperiam, eaque ipsa quae ab illo inventore veritatis et quasi
architecto beatae vitae dicta sunt explicabo.
`

// Detail returns the article shown on the detail page. Every id yields the
// same article.
func Detail(_ string) Article {
	return Article{
		Title:    "Webpack vs Vite: Comparison of Build Tools for Frontend Projects",
		Subtitle: "Unlearning should also be part of the process",
		Banner:   "/Images/photobg.png",
		Tags:     []string{"Technology", "Frontend"},
		Date:     "11/05/2022",
		Likes:    29,
		Comments: 12,
		Share:    "Share",
		Body:     articleBody,
	}
}

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func renderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// RenderBody converts Markdown to HTML. Raw HTML in the source is not passed through.
func RenderBody(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := renderer().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
