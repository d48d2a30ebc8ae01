package outline

import (
	"time"
	"watsearch-backend/lib/textutil"
)

// CourseListing is one row of a "my outlines" listing page. It only
// carries enough information to locate and label the full outline.
type CourseListing struct {
	Code      string   `json:"code"`
	Title     string   `json:"title"`
	Term      string   `json:"term"`
	Sections  []string `json:"sections"`
	ViewUrl   string   `json:"url"`
	OutlineId string   `json:"outlineId"`
}

type Instructor struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Office      string `json:"office,omitempty"`
	OfficeHours string `json:"officeHours,omitempty"`
}

type Schedule struct {
	Days     []string `json:"days"`
	Time     string   `json:"time"`
	Location string   `json:"location"`
}

type AssessmentType string

const (
	AssessmentAssignment AssessmentType = "assignment"
	AssessmentExam       AssessmentType = "exam"
	AssessmentQuiz       AssessmentType = "quiz"
	AssessmentProject    AssessmentType = "project"
	AssessmentLab        AssessmentType = "lab"
)

type Assessment struct {
	Id   string         `json:"id"`
	Name string         `json:"name"`
	Type AssessmentType `json:"type"`
	// the source outline puts the hand-in/exam location in the
	// column we surface as description, keep that behavior
	Description string     `json:"description,omitempty"`
	Weight      float64    `json:"weight"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type Material struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Notes    string `json:"notes,omitempty"`
}

// Course is the normalized record one outline page boils down to.
// Code and Name are the only required fields, everything else
// defaults to an explicit empty value so consumers never see nil.
type Course struct {
	Id               string       `json:"id"`
	Code             string       `json:"code"`
	Name             string       `json:"name"`
	Term             string       `json:"term"`
	Sections         []string     `json:"sections"`
	Instructor       Instructor   `json:"instructor"`
	Schedule         Schedule     `json:"schedule"`
	Description      string       `json:"description"`
	LearningOutcomes []string     `json:"learningOutcomes"`
	Assessments      []Assessment `json:"assessments"`
	Materials        []Material   `json:"materials"`
	Policies         []string     `json:"policies"`
}

// DeriveId builds the deterministic record id from code and term,
// e.g. ("CS 350", "Fall 2025") -> "CS350Fall2025".
func DeriveId(code, term string) string {
	return textutil.StripWhitespace(code) + textutil.StripWhitespace(term)
}

func classifyAssessment(name string) AssessmentType {
	n := textutil.NormalizeName(name)
	switch {
	case textutil.MatchName(n, []string{"exam"}):
		return AssessmentExam
	case textutil.MatchName(n, []string{"quiz"}):
		return AssessmentQuiz
	case textutil.MatchName(n, []string{"project"}):
		return AssessmentProject
	case textutil.MatchName(n, []string{"lab"}):
		return AssessmentLab
	default:
		return AssessmentAssignment
	}
}
