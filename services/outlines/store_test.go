package outlines

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/lib/testutil"
	"watsearch-backend/services/outlines/db"
)

func TestStore(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/outlines",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		courses, err := store.Load(ctx, "unknown-owner")
		if err != nil {
			t.Fatal(err)
		}
		require.NotNil(t, courses)
		require.Empty(t, courses)
	}

	course := outline.Course{
		Id:          "CS350Fall2025",
		Code:        "CS 350",
		Name:        "Operating Systems",
		Term:        "Fall 2025",
		Sections:    []string{"001"},
		Description: "An introduction to operating systems.",
		Instructor:  outline.Instructor{Name: "Ada Lovelace", Email: "ada@uwaterloo.ca"},
		Schedule:    outline.Schedule{Days: []string{"Mon", "Wed"}},
		Assessments: []outline.Assessment{
			{Id: "CS 350-assignment-1", Name: "Assignment 1", Type: outline.AssessmentAssignment, Weight: 15},
		},
	}

	{
		added, updated, err := store.Save(ctx, "owner", []outline.Course{course})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 1, added)
		require.Equal(t, 0, updated)

		loaded, err := store.Load(ctx, "owner")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, loaded, 1)
		if diff := cmp.Diff(course, loaded[0]); diff != "" {
			t.Fatalf("stored course does not round-trip:\n%s", diff)
		}
	}

	{
		// saving again with a changed field updates in place
		course.Description = "A deeper introduction to operating systems."
		added, updated, err := store.Save(ctx, "owner", []outline.Course{course})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 0, added)
		require.Equal(t, 1, updated)

		loaded, err := store.Load(ctx, "owner")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, loaded, 1)
		require.Equal(t, "A deeper introduction to operating systems.", loaded[0].Description)
	}

	{
		// owners do not see each other's records
		added, _, err := store.Save(ctx, "other-owner", []outline.Course{
			{Code: "MATH 135", Term: "Fall 2025", Name: "Algebra"},
		})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 1, added)

		loaded, err := store.Load(ctx, "owner")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, loaded, 1)
	}
}

func TestStoreGet(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/outlines",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	course := outline.Course{
		Id:       "STAT231Spring2025",
		Code:     "STAT 231",
		Name:     "Statistics",
		Term:     "Spring 2025",
		Sections: []string{"001"},
	}
	_, _, err := store.Save(ctx, "owner", []outline.Course{course})
	if err != nil {
		t.Fatal(err)
	}

	{
		got, found, err := store.Get(ctx, "owner", "STAT 231", "Spring 2025")
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, found)
		if diff := cmp.Diff(course, got); diff != "" {
			t.Fatalf("fetched course does not round-trip:\n%s", diff)
		}
	}

	{
		// lookups are exact on both code and term
		_, found, err := store.Get(ctx, "owner", "STAT 231", "Fall 2025")
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, found)

		_, found, err = store.Get(ctx, "other-owner", "STAT 231", "Spring 2025")
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, found)
	}
}
