package course

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/coursefind/internal/domain"
	domcourse "github.com/kailas-cloud/coursefind/internal/domain/course"
)

const createCoursesTable = `CREATE TABLE IF NOT EXISTS courses (
	position    INTEGER NOT NULL PRIMARY KEY,
	id          TEXT    NOT NULL UNIQUE,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	image_url   TEXT    NOT NULL DEFAULT '',
	course_link TEXT    NOT NULL DEFAULT '#'
);`

// SQLiteSource stores the catalog in a SQLite table ordered by position.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and ensures the courses table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, createCoursesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create courses table: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// Load reads all courses in position order.
func (s *SQLiteSource) Load(ctx context.Context) ([]domcourse.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, image_url, course_link FROM courses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domcourse.Course
	for rows.Next() {
		var id, title, desc, img, link string
		if err := rows.Scan(&id, &title, &desc, &img, &link); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c, err := domcourse.New(id, title, desc, img, link)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", len(out), err, domain.ErrInvalidCourse)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

// Replace swaps the table contents for courses in one transaction.
func (s *SQLiteSource) Replace(ctx context.Context, courses []domcourse.Course) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("clear courses: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO courses (position, id, title, description, image_url, course_link) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range courses {
		c := &courses[i]
		if _, err := stmt.ExecContext(ctx, i, c.ID(), c.Title(), c.Description(), c.ImageURL(), c.Link()); err != nil {
			return fmt.Errorf("insert course %s: %w", c.ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
