// Package admin models the tabbed admin panel.
package admin

import (
	"strings"
	"sync"
)

// Tab is one of the four admin views.
type Tab int

const (
	TabCreatePost Tab = iota
	TabCreateCategory
	TabPosts
	TabCategories
)

// DefaultTab is selected when a panel is created.
const DefaultTab = TabCreatePost

var tabOrder = [...]Tab{TabCreatePost, TabCreateCategory, TabPosts, TabCategories}

var tabLabels = map[Tab]string{
	TabCreatePost:     "Create Post",
	TabCreateCategory: "Create Category",
	TabPosts:          "Posts",
	TabCategories:     "Categories",
}

// Label returns the display name, or "" for values outside the enumeration.
func (t Tab) Label() string {
	return tabLabels[t]
}

// Valid reports whether t is one of the four tabs.
func (t Tab) Valid() bool {
	_, ok := tabLabels[t]
	return ok
}

// ParseTab maps a display label onto a Tab. Matching ignores case and surrounding space.
func ParseTab(label string) (Tab, bool) {
	label = strings.TrimSpace(label)
	for _, t := range tabOrder {
		if strings.EqualFold(t.Label(), label) {
			return t, true
		}
	}
	return DefaultTab, false
}

// ContentKind tells the template which child view to draw.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentCreatePost
	ContentPlaceholder
)

// Content is the child view of the selected tab.
type Content struct {
	Kind ContentKind
	Tab  Tab
	Text string
	Form PostForm
}

// IsEmpty reports whether nothing should be rendered.
func (c Content) IsEmpty() bool {
	return c.Kind == ContentNone
}

// IsCreatePost reports whether the Create Post form should be drawn.
func (c Content) IsCreatePost() bool {
	return c.Kind == ContentCreatePost
}

// ContentFor returns the child view for t. Values outside the enumeration get empty content.
func ContentFor(t Tab) Content {
	switch t {
	case TabCreatePost:
		return Content{Kind: ContentCreatePost, Tab: t}
	case TabCreateCategory:
		return Content{Kind: ContentPlaceholder, Tab: t, Text: "Create a new category here"}
	case TabPosts:
		return Content{Kind: ContentPlaceholder, Tab: t, Text: "List of all posts"}
	case TabCategories:
		return Content{Kind: ContentPlaceholder, Tab: t, Text: "List of all categories"}
	default:
		return Content{}
	}
}

// TabLink is one entry of the tab menu.
type TabLink struct {
	Tab    Tab
	Label  string
	Active bool
}

// Panel holds the selected tab and the Create Post draft for one visitor.
type Panel struct {
	mu     sync.Mutex
	active Tab
	form   PostForm
}

// NewPanel returns a panel on the default tab.
func NewPanel() *Panel {
	return &Panel{active: DefaultTab}
}

// Active returns the selected tab.
func (p *Panel) Active() Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Select switches to t. Values outside the enumeration are ignored.
func (p *Panel) Select(t Tab) bool {
	if !t.Valid() {
		return false
	}
	p.mu.Lock()
	p.active = t
	p.mu.Unlock()
	return true
}

// Tabs lists the menu in display order.
func (p *Panel) Tabs() []TabLink {
	active := p.Active()
	links := make([]TabLink, 0, len(tabOrder))
	for _, t := range tabOrder {
		links = append(links, TabLink{Tab: t, Label: t.Label(), Active: t == active})
	}
	return links
}

// Content returns the child view of the selected tab.
func (p *Panel) Content() Content {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := ContentFor(p.active)
	if c.Kind == ContentCreatePost {
		c.Form = p.form
	}
	return c
}

// SetPostForm keeps a rejected Create Post submission for re-rendering.
func (p *Panel) SetPostForm(f PostForm) {
	p.mu.Lock()
	p.form = f
	p.mu.Unlock()
}

// ResetPostForm clears the Create Post draft.
func (p *Panel) ResetPostForm() {
	p.SetPostForm(PostForm{})
}
