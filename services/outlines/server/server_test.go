package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/lib/testutil"
	"watsearch-backend/services/outlines"
	"watsearch-backend/services/outlines/db"
)

func setupServer(t *testing.T) *gin.Engine {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/outlines/server",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	service := outlines.NewService(setup.DB, outlines.ServiceOptions{
		BatchDelay: time.Millisecond,
	})
	New(service).Register(router)
	return router
}

func outlinePage(code, title, term string) string {
	return fmt.Sprintf(`<html><body>
		<span class="outline-courses">%s</span>
		<span class="outline-term">%s</span>
		<h1 class="outline-title-full">%s</h1>
	</body></html>`, code, term, title) + strings.Repeat("<!-- padding -->", 100)
}

func multipartUpload(t *testing.T, filename, html string, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, err = part.Write([]byte(html))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		err = writer.WriteField(k, v)
		if err != nil {
			t.Fatal(err)
		}
	}
	err = writer.Close()
	if err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := setupServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadOutline(t *testing.T) {
	router := setupServer(t)

	body, contentType := multipartUpload(t, "cs350.html", outlinePage("CS 350", "Operating Systems", "Fall 2025"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-outline", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(OwnerHeader, "alice")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res outlines.UploadResult
	err := json.Unmarshal(rec.Body.Bytes(), &res)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Success)
	require.Equal(t, outlines.UploadKindOutline, res.Kind)
	require.Equal(t, 1, res.Added)

	// the record is scoped to the uploading owner
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set(OwnerHeader, "alice")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Courses []outline.Course `json:"courses"`
	}
	err = json.Unmarshal(rec.Body.Bytes(), &listed)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, listed.Courses, 1)
	require.Equal(t, "CS 350", listed.Courses[0].Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	router.ServeHTTP(rec, req)
	err = json.Unmarshal(rec.Body.Bytes(), &listed)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, listed.Courses)
}

func TestUploadOutlineRejectsNonHtml(t *testing.T) {
	router := setupServer(t)

	body, contentType := multipartUpload(t, "notes.txt", "plain text", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-outline", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessListingsParseOnly(t *testing.T) {
	router := setupServer(t)

	listings := `<html><body>
		<h2>My Enrolled Courses</h2>
		<div class="border">
			<h3 class="text-xl">Fall 2025</h3>
			<table><tbody>
				<tr>
					<td><span>CS 350</span></td>
					<td>Operating Systems</td>
					<td>001</td>
					<td><a href="/viewer/view/aa">View</a></td>
				</tr>
			</tbody></table>
		</div>
	</body></html>`

	body, contentType := multipartUpload(t, "Outline.uwaterloo.ca.html", listings, map[string]string{
		"action": "parse_only",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-listings", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res outlines.UploadResult
	err := json.Unmarshal(rec.Body.Bytes(), &res)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Success)
	require.Equal(t, outlines.UploadKindListings, res.Kind)
	require.Len(t, res.Listings, 1)
	require.Equal(t, []string{"Fall 2025"}, res.Terms)
}

func TestProcessListingsRejectsUnknownAction(t *testing.T) {
	router := setupServer(t)

	body, contentType := multipartUpload(t, "Outline.uwaterloo.ca.html", "<html></html>", map[string]string{
		"action": "explode",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-listings", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostCourses(t *testing.T) {
	router := setupServer(t)

	payload, err := json.Marshal([]outline.Course{
		{Id: "CS350Fall2025", Code: "CS 350", Name: "Operating Systems", Term: "Fall 2025"},
		{Id: "CS341Fall2025", Code: "CS 341", Name: "Algorithms", Term: "Fall 2025"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/courses", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Added   int `json:"added"`
		Updated int `json:"updated"`
	}
	err = json.Unmarshal(rec.Body.Bytes(), &res)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, res.Added)
	require.Equal(t, 0, res.Updated)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/courses", strings.NewReader(`{"not":"an array"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCourse(t *testing.T) {
	router := setupServer(t)

	payload, err := json.Marshal([]outline.Course{
		{Id: "CS350Fall2025", Code: "CS 350", Name: "Operating Systems", Term: "Fall 2025"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/courses", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/courses/CS%20350?term=Fall%202025", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var course outline.Course
	err = json.Unmarshal(rec.Body.Bytes(), &course)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "CS 350", course.Code)
	require.Equal(t, "Operating Systems", course.Name)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/courses/CS%20135?term=Fall%202025", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
