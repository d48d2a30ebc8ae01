package outline

import (
	"testing"
	"time"
	"watsearch-backend/lib/timezone"

	_ "embed"

	"github.com/stretchr/testify/require"
)

//go:embed testdata/outline.html
var outlineHtml string

//go:embed testdata/spa.html
var spaHtml string

func TestParseOutline(t *testing.T) {
	course, err := ParseOutline(outlineHtml, "https://outline.uwaterloo.ca/viewer/view/nc7p8w")
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "CS 350", course.Code)
	require.Equal(t, "Operating Systems", course.Name)
	require.Equal(t, "Fall 2025", course.Term)
	require.Equal(t, "CS350Fall2025", course.Id)
	require.Equal(t, []string{"001 [LEC]", "002 [LEC]"}, course.Sections)

	require.Equal(t, "Ada Lovelace", course.Instructor.Name)
	require.Equal(t, "ada@uwaterloo.ca", course.Instructor.Email)
	require.Equal(t, "DC 2306", course.Instructor.Office)
	require.Equal(t, "Tue 2-4pm", course.Instructor.OfficeHours)

	require.Equal(t, []string{"Mon", "Wed", "Fri"}, course.Schedule.Days)
	require.Equal(t, "10:30 AM - 11:20 AM", course.Schedule.Time)
	require.Equal(t, "MC 4059", course.Schedule.Location)

	require.Contains(t, course.Description, "process management")
	require.Len(t, course.LearningOutcomes, 2)

	// the "Participation" row has an unparsable weight and is dropped
	require.Len(t, course.Assessments, 3)

	a1 := course.Assessments[0]
	require.Equal(t, "CS 350-assignment-1", a1.Id)
	require.Equal(t, "Assignment 1", a1.Name)
	require.Equal(t, AssessmentAssignment, a1.Type)
	require.Equal(t, float64(15), a1.Weight)
	require.Equal(t, "DC 1301", a1.Description)
	require.NotNil(t, a1.DueDate)
	require.Equal(t, time.Date(2025, 10, 15, 0, 0, 0, 0, timezone.Location), *a1.DueDate)

	midterm := course.Assessments[1]
	require.Equal(t, AssessmentExam, midterm.Type)
	require.Equal(t, float64(25), midterm.Weight)

	final := course.Assessments[2]
	require.Equal(t, AssessmentExam, final.Type)
	// "TBA" is not a date, it must come out absent rather than invalid
	require.Nil(t, final.DueDate)

	require.Len(t, course.Materials, 2)
	require.Equal(t, "Operating System Concepts, 10th Edition", course.Materials[0].Title)
	require.True(t, course.Materials[0].Required)
	require.Equal(t, "textbook", course.Materials[0].Type)
	require.False(t, course.Materials[1].Required)

	require.Equal(t, []string{
		"Late assignments are penalized 10% per day.",
		"Missed exams require verification of illness.",
	}, course.Policies)
}

func TestParseOutlineArrayFieldsNeverNil(t *testing.T) {
	course, err := ParseOutline(`
		<html><body>
			<span class="outline-courses">CS 135</span>
			<h1 class="outline-title-full">Designing Functional Programs</h1>
		</body></html>
	`, "")
	if err != nil {
		t.Fatal(err)
	}

	require.NotNil(t, course.Sections)
	require.NotNil(t, course.LearningOutcomes)
	require.NotNil(t, course.Assessments)
	require.NotNil(t, course.Materials)
	require.NotNil(t, course.Policies)
	require.NotNil(t, course.Schedule.Days)
}

func TestParseOutlineSpaShell(t *testing.T) {
	course, err := ParseOutline(spaHtml, "")
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "ECE 105", course.Code)
	require.Equal(t, "Classical Mechanics", course.Name)
	require.Equal(t, "Winter 2026", course.Term)
}

func TestParseOutlineFailure(t *testing.T) {
	_, err := ParseOutline("<html><body><p>Not an outline.</p></body></html>", "")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.False(t, perr.CodeFound)
	require.False(t, perr.TitleFound)
}

func TestParseOutlineCodeFallbacks(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "course code class pattern",
			html: `<html><body>
				<div class="header-course-code">CS 350</div>
				<h2 class="outline-title">Operating Systems</h2>
			</body></html>`,
			want: "CS 350",
		},
		{
			name: "h1 regex",
			html: `<html><body>
				<h1>CS 350: Operating Systems</h1>
			</body></html>`,
			want: "CS 350",
		},
		{
			name: "title regex",
			html: `<html><head><title>CS 350 - Outline</title></head><body>
				<h2>Operating Systems</h2>
			</body></html>`,
			want: "CS 350",
		},
		{
			name: "lowercase code in raw markup",
			html: `<html><body>
				<p>see the cs 350 syllabus</p>
				<h2>Operating Systems</h2>
			</body></html>`,
			want: "cs 350",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			course, err := ParseOutline(test.html, "")
			if err != nil {
				t.Fatal(err)
			}
			require.Equal(t, test.want, course.Code)
		})
	}
}

func TestParseOutlineRecoversPanic(t *testing.T) {
	saved := codeStrategies
	codeStrategies = append(
		[]fieldStrategy{func(*page) string { panic("strategy blew up") }},
		saved...,
	)
	t.Cleanup(func() { codeStrategies = saved })

	_, err := ParseOutline("<html><body><h1>CS 350</h1></body></html>", "")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Reason, "internal panic")
}

func TestParseDueDate(t *testing.T) {
	require.Nil(t, parseDueDate(""))
	require.Nil(t, parseDueDate("TBA"))
	require.Nil(t, parseDueDate("sometime in week 9"))

	d := parseDueDate("October 30, 2025")
	require.NotNil(t, d)
	require.Equal(t, time.October, d.Month())
	require.Equal(t, 30, d.Day())
}
