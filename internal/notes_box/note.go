package notes_box

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultCategory = "Uncategorized"

	maxFormMemory = 1 << 20
)

type Note struct {
	ID        string   `json:"id" yaml:"id"`
	Serial    int      `json:"serial" yaml:"serial"`
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"note" yaml:"note"`
	Important bool     `json:"important" yaml:"important"`
	Category  string   `json:"category" yaml:"category"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// FormError is returned when the submitted note form cannot be accepted.
type FormError struct {
	Field  string
	Reason string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ParseTags splits a comma separated tags input, trimming every tag and dropping empty ones.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func ParseImportant(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return false, nil
	case "1", "true", "on", "yes", "t", "y":
		return true, nil
	case "0", "false", "off", "no", "f", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %q", raw)
}

// noteFromForm builds a note from the submitted form fields. Empty values count as missing.
func noteFromForm(r *http.Request) (*Note, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, &FormError{Field: "body", Reason: err.Error()}
	}

	title := r.PostForm.Get("title")
	if title == "" {
		return nil, &FormError{Field: "title", Reason: "field required"}
	}
	body := r.PostForm.Get("note")
	if body == "" {
		return nil, &FormError{Field: "note", Reason: "field required"}
	}

	important, err := ParseImportant(r.PostForm.Get("important"))
	if err != nil {
		return nil, &FormError{Field: "important", Reason: err.Error()}
	}

	category := strings.TrimSpace(r.PostForm.Get("category"))
	if category == "" {
		category = DefaultCategory
	}

	return &Note{
		Title:     title,
		Body:      body,
		Important: important,
		Category:  category,
		Tags:      ParseTags(r.PostForm.Get("tags")),
	}, nil
}
