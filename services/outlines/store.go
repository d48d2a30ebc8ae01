package outlines

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/lib/timezone"
	"watsearch-backend/services/outlines/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Store persists the normalized course records of each owner. Records
// are stored as JSON documents keyed by (owner, code, term).
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Load(ctx context.Context, owner string) ([]outline.Course, error) {
	ctx, span := tracer.Start(ctx, "store.Load")
	defer span.End()
	span.SetAttributes(attribute.String("owner", owner))

	rows, err := s.qry.ListCoursesByOwner(ctx, owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	courses := []outline.Course{}
	for _, r := range rows {
		var course outline.Course
		err := json.Unmarshal([]byte(r.Data), &course)
		if err != nil {
			slog.WarnContext(
				ctx, "skipping unreadable course record",
				"owner", owner,
				"code", r.Code,
				"term", r.Term,
				"err", err,
			)
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Get looks up one stored record by its exact (code, term) key. A
// missing record is reported through found, not an error.
func (s Store) Get(ctx context.Context, owner string, code string, term string) (course outline.Course, found bool, err error) {
	ctx, span := tracer.Start(ctx, "store.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner", owner),
		attribute.String("code", code),
		attribute.String("term", term),
	)

	row, err := s.qry.GetCourse(ctx, db.GetCourseParams{
		Owner: owner,
		Code:  code,
		Term:  term,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return outline.Course{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outline.Course{}, false, err
	}

	err = json.Unmarshal([]byte(row.Data), &course)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outline.Course{}, false, err
	}
	return course, true, nil
}

// Save merges incoming into the owner's stored set and writes the
// merged set back in one transaction. It reports how many records
// were newly added and how many updated an existing one.
func (s Store) Save(ctx context.Context, owner string, incoming []outline.Course) (added int, updated int, err error) {
	ctx, span := tracer.Start(ctx, "store.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner", owner),
		attribute.Int("incoming", len(incoming)),
	)

	existing, err := s.Load(ctx, owner)
	if err != nil {
		return 0, 0, err
	}
	result := Merge(existing, incoming)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := timezone.Now().Unix()
	for _, course := range result.Courses {
		data, err := json.Marshal(course)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, 0, err
		}
		err = txqry.UpsertCourse(ctx, db.UpsertCourseParams{
			Owner:     owner,
			Code:      course.Code,
			Term:      course.Term,
			Data:      string(data),
			UpdatedAt: now,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, 0, err
		}
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}

	return result.Added, result.Updated, nil
}
