package db

import (
	"context"
)

type Course struct {
	Owner     string
	Code      string
	Term      string
	Data      string
	UpdatedAt int64
}

const listCoursesByOwner = `
SELECT owner, code, term, data, updated_at FROM courses
WHERE owner = ?
ORDER BY term, code
`

func (q *Queries) ListCoursesByOwner(ctx context.Context, owner string) ([]Course, error) {
	rows, err := q.db.QueryContext(ctx, listCoursesByOwner, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Course
	for rows.Next() {
		var i Course
		if err := rows.Scan(&i.Owner, &i.Code, &i.Term, &i.Data, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCourse = `
INSERT INTO courses (owner, code, term, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (owner, code, term) DO UPDATE SET
    data = excluded.data,
    updated_at = excluded.updated_at
`

type UpsertCourseParams struct {
	Owner     string
	Code      string
	Term      string
	Data      string
	UpdatedAt int64
}

func (q *Queries) UpsertCourse(ctx context.Context, arg UpsertCourseParams) error {
	_, err := q.db.ExecContext(ctx, upsertCourse,
		arg.Owner,
		arg.Code,
		arg.Term,
		arg.Data,
		arg.UpdatedAt,
	)
	return err
}

const getCourse = `
SELECT owner, code, term, data, updated_at FROM courses
WHERE owner = ? AND code = ? AND term = ?
`

type GetCourseParams struct {
	Owner string
	Code  string
	Term  string
}

func (q *Queries) GetCourse(ctx context.Context, arg GetCourseParams) (Course, error) {
	row := q.db.QueryRowContext(ctx, getCourse, arg.Owner, arg.Code, arg.Term)
	var i Course
	err := row.Scan(&i.Owner, &i.Code, &i.Term, &i.Data, &i.UpdatedAt)
	return i, err
}

const deleteCoursesByOwner = `
DELETE FROM courses WHERE owner = ?
`

func (q *Queries) DeleteCoursesByOwner(ctx context.Context, owner string) error {
	_, err := q.db.ExecContext(ctx, deleteCoursesByOwner, owner)
	return err
}
