package blog

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func TestDetailIgnoresID(t *testing.T) {
	want := Detail("")
	for _, id := range []string{"1", "42", "webpack-vs-vite", "../etc"} {
		if diff := cmp.Diff(want, Detail(id)); diff != "" {
			t.Fatalf("Detail(%q) differs (-want +got):\n%s", id, diff)
		}
	}
}

func TestDetailContent(t *testing.T) {
	a := Detail("1")
	if a.Title != "Webpack vs Vite: Comparison of Build Tools for Frontend Projects" {
		t.Fatalf("unexpected title %q", a.Title)
	}
	if a.Likes != 29 || a.Comments != 12 || a.Date != "11/05/2022" {
		t.Fatalf("unexpected metadata %+v", a)
	}
	if diff := cmp.Diff([]string{"Technology", "Frontend"}, a.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBody(t *testing.T) {
	html, err := RenderBody(Detail("x").Body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n := doc.Find("p").Length(); n != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", n)
	}
	if !strings.HasPrefix(doc.Find("p").First().Text(), "Lorem ipsum") {
		t.Fatalf("unexpected first paragraph %q", doc.Find("p").First().Text())
	}
}

func TestRenderBodyDropsRawHTML(t *testing.T) {
	html, err := RenderBody("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Fatalf("raw html leaked: %s", html)
	}
}
