package admin

import (
	"net/url"
	"strings"

	"github.com/Its-donkey/quill/internal/posts"
)

// PostForm is the Create Post input.
type PostForm struct {
	Title    string
	Subtitle string
	Tags     string
	Body     string
	Errors   PostFormErrors
}

// PostFormErrors flags invalid fields.
type PostFormErrors struct {
	Title bool
	Body  bool
}

// Any reports whether any field is flagged.
func (e PostFormErrors) Any() bool {
	return e.Title || e.Body
}

// ParsePostForm reads the Create Post fields from submitted form values.
func ParsePostForm(values url.Values) PostForm {
	return PostForm{
		Title:    strings.TrimSpace(values.Get("title")),
		Subtitle: strings.TrimSpace(values.Get("subtitle")),
		Tags:     strings.TrimSpace(values.Get("tags")),
		Body:     strings.TrimSpace(values.Get("body")),
	}
}

// Validate flags the required fields that are empty.
func (f PostForm) Validate() PostFormErrors {
	return PostFormErrors{
		Title: strings.TrimSpace(f.Title) == "",
		Body:  strings.TrimSpace(f.Body) == "",
	}
}

// Post converts the form into a posts.Post authored by authorID.
func (f PostForm) Post(authorID string) posts.Post {
	return posts.Post{
		Title:    f.Title,
		Subtitle: f.Subtitle,
		Tags:     posts.NormalizeTags(strings.Split(f.Tags, ",")),
		Body:     f.Body,
		AuthorID: authorID,
	}
}
