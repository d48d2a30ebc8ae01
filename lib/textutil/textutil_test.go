package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "cs350", NormalizeName("  CS 350\n"))
	require.Equal(t, "operatingsystems", NormalizeName("Operating  Systems"))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "assignment-1", Slugify("Assignment 1"))
	require.Equal(t, "final-exam", Slugify("  Final\tExam "))
}

func TestStripWhitespace(t *testing.T) {
	require.Equal(t, "CS350Fall2025", StripWhitespace("CS 350 Fall 2025"))
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "a b c", CollapseWhitespace("  a \n b\t\tc "))
}
