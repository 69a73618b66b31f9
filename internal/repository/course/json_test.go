package course

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/coursefind/internal/domain"
	domcourse "github.com/kailas-cloud/coursefind/internal/domain/course"
)

const sampleCatalog = `[
    {
        "title": "Intro to Python",
        "description": "basics",
        "image_url": "https://img/python.png",
        "course_link": "https://courses.example.com/courses/intro-to-python"
    },
    {
        "title": "Deep Learning",
        "description": null,
        "image_url": "No Image URL",
        "course_link": "#"
    },
    {
        "id": "custom",
        "title": "Statistics",
        "course_link": "https://courses.example.com/courses/stats/"
    }
]`

func TestParseJSON(t *testing.T) {
	courses, err := ParseJSON([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("len = %d, want 3", len(courses))
	}

	wantIDs := []string{"intro-to-python", "course-2", "custom"}
	for i, want := range wantIDs {
		if courses[i].ID() != want {
			t.Errorf("courses[%d].ID() = %q, want %q", i, courses[i].ID(), want)
		}
	}
	if courses[1].Description() != "" {
		t.Errorf("null description = %q, want empty", courses[1].Description())
	}
	if courses[2].Description() != "" {
		t.Errorf("missing description = %q, want empty", courses[2].Description())
	}
	if courses[0].EmbeddingText() != "Intro to Python basics" {
		t.Errorf("EmbeddingText() = %q", courses[0].EmbeddingText())
	}
}

func TestParseJSON_DuplicateIDs(t *testing.T) {
	data := `[
		{"title": "A", "course_link": "https://x/c/same"},
		{"title": "B", "course_link": "https://x/c/same"},
		{"title": "C", "course_link": "https://x/c/same"}
	]`
	courses, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	got := []string{courses[0].ID(), courses[1].ID(), courses[2].ID()}
	if strings.Join(got, ",") != "same,same-2,same-3" {
		t.Errorf("IDs = %v", got)
	}
}

func TestParseJSON_SuffixSkipsAssignedIDs(t *testing.T) {
	data := `[
		{"title": "A", "course_link": "https://x/courses/python-2"},
		{"title": "B", "course_link": "https://x/courses/python"},
		{"title": "C", "course_link": "https://x/courses/python"},
		{"id": "python-3", "title": "D", "course_link": "#"}
	]`
	courses, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	got := make([]string, len(courses))
	for i := range courses {
		got[i] = courses[i].ID()
	}
	if strings.Join(got, ",") != "python-2,python,python-3,python-3-2" {
		t.Errorf("IDs = %v", got)
	}
}

func TestParseJSON_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an array", `{"title": "x"}`},
		{"missing title", `[{"description": "x"}]`},
		{"empty title", `[{"title": ""}]`},
		{"wrong type", `[{"title": 42}]`},
		{"malformed", `[{"title": "x"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tc.data))
			if !errors.Is(err, domain.ErrInvalidCourse) {
				t.Errorf("expected ErrInvalidCourse, got %v", err)
			}
		})
	}
}

func TestParseJSON_BlankTitleRejected(t *testing.T) {
	_, err := ParseJSON([]byte(`[{"title": "   "}]`))
	if !errors.Is(err, domain.ErrInvalidCourse) {
		t.Errorf("expected ErrInvalidCourse, got %v", err)
	}
}

func TestParseJSON_Empty(t *testing.T) {
	courses, err := ParseJSON([]byte(`[]`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(courses) != 0 {
		t.Errorf("len = %d", len(courses))
	}
}

func TestJSONSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	courses, err := NewJSONSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(courses) != 3 {
		t.Errorf("len = %d", len(courses))
	}
}

func TestJSONSource_Missing(t *testing.T) {
	_, err := NewJSONSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	in, err := ParseJSON([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out, err := NewJSONSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameCourses(t, in, out)
}

func assertSameCourses(t *testing.T, want, got []domcourse.Course) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.ID() != g.ID() || w.Title() != g.Title() || w.Description() != g.Description() ||
			w.ImageURL() != g.ImageURL() || w.Link() != g.Link() {
			t.Errorf("course %d differs: got %+v, want %+v", i, g, w)
		}
	}
}
