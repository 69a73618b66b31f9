package course

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/coursefind/internal/domain"
	domcourse "github.com/kailas-cloud/coursefind/internal/domain/course"
)

// courseDTO is the catalog record shape written by the scraper.
type courseDTO struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ImageURL    string  `json:"image_url"`
	CourseLink  string  `json:"course_link"`
}

// toDomain validates records and assigns explicit IDs. A record without an ID
// gets the last path segment of its link, or "course-<n>" (1-based position)
// when the link is missing. Repeated IDs get the lowest "-2", "-3", ...
// suffix not already assigned.
func toDomain(records []courseDTO) ([]domcourse.Course, error) {
	out := make([]domcourse.Course, 0, len(records))
	used := make(map[string]struct{}, len(records))

	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = deriveID(r.CourseLink, i)
		}
		id = uniqueID(id, used)

		desc := ""
		if r.Description != nil {
			desc = *r.Description
		}
		c, err := domcourse.New(id, r.Title, desc, r.ImageURL, r.CourseLink)
		if err != nil {
			return nil, fmt.Errorf("record %d: %v: %w", i, err, domain.ErrInvalidCourse)
		}
		out = append(out, c)
	}
	return out, nil
}

// uniqueID returns id, or id with the lowest free "-<n>" suffix (n >= 2),
// and records the result in used.
func uniqueID(id string, used map[string]struct{}) string {
	candidate := id
	for n := 2; ; n++ {
		if _, taken := used[candidate]; !taken {
			break
		}
		candidate = id + "-" + strconv.Itoa(n)
	}
	used[candidate] = struct{}{}
	return candidate
}

func deriveID(link string, pos int) string {
	link = strings.TrimSpace(link)
	if link != "" && link != domcourse.DefaultLink {
		if u, err := url.Parse(link); err == nil {
			segs := strings.Split(strings.Trim(u.Path, "/"), "/")
			if last := segs[len(segs)-1]; last != "" {
				return last
			}
		}
	}
	return "course-" + strconv.Itoa(pos+1)
}

func fromDomain(c *domcourse.Course) courseDTO {
	desc := c.Description()
	return courseDTO{
		ID:          c.ID(),
		Title:       c.Title(),
		Description: &desc,
		ImageURL:    c.ImageURL(),
		CourseLink:  c.Link(),
	}
}
