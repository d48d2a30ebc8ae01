package outline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTermForDate(t *testing.T) {
	cases := []struct {
		date time.Time
		term string
	}{
		{time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "Winter 2025"},
		{time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), "Winter 2025"},
		{time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), "Spring 2025"},
		{time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), "Spring 2025"},
		{time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), "Fall 2025"},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), "Fall 2025"},
	}
	for _, test := range cases {
		require.Equal(t, test.term, TermForDate(test.date))
	}
}
