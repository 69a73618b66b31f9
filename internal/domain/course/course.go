package course

import (
	"fmt"
	"strings"
)

// Defaults applied at the loading boundary for fields the catalog left empty.
const (
	DefaultLink    = "#"
	MaxIDLength    = 256
	MaxTitleLength = 1024
	textSeparator  = " "
)

// Course is a catalog entry (immutable value object).
// Image URL and link are opaque metadata passed through to results.
type Course struct {
	id          string
	title       string
	description string
	imageURL    string
	link        string
}

// New validates and creates a Course. A missing description is the empty string.
func New(id, title, description, imageURL, link string) (Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Course{}, fmt.Errorf("course ID is required")
	}
	if len(id) > MaxIDLength {
		return Course{}, fmt.Errorf("course ID too long (max %d)", MaxIDLength)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Course{}, fmt.Errorf("course %q: title is required", id)
	}
	if len(title) > MaxTitleLength {
		return Course{}, fmt.Errorf("course %q: title too long (max %d)", id, MaxTitleLength)
	}
	link = strings.TrimSpace(link)
	if link == "" {
		link = DefaultLink
	}

	return Course{
		id:          id,
		title:       title,
		description: strings.TrimSpace(description),
		imageURL:    strings.TrimSpace(imageURL),
		link:        link,
	}, nil
}

// Reconstruct creates a Course without validation (snapshot hydration).
func Reconstruct(id, title, description, imageURL, link string) Course {
	return Course{id: id, title: title, description: description, imageURL: imageURL, link: link}
}

// ID returns the course identifier.
func (c Course) ID() string { return c.id }

// Title returns the course title.
func (c Course) Title() string { return c.title }

// Description returns the course description, possibly empty.
func (c Course) Description() string { return c.description }

// ImageURL returns the course image URL.
func (c Course) ImageURL() string { return c.imageURL }

// Link returns the course page URL.
func (c Course) Link() string { return c.link }

// EmbeddingText is the text encoded for this course: title and description
// joined by a single space.
func (c Course) EmbeddingText() string {
	if c.description == "" {
		return c.title
	}
	return c.title + textSeparator + c.description
}
