package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/services/outlines"
)

// OwnerHeader carries the opaque owner key records are scoped to.
// Requests without it fall back to a single shared owner.
const OwnerHeader = "X-Watsearch-Owner"

const defaultOwner = "local"

// uploads are whole saved HTML pages, cap them at something generous
const maxUploadBytes = 10 << 20

type Server struct {
	service outlines.Service
}

func New(service outlines.Service) Server {
	return Server{service: service}
}

func (s Server) Register(router gin.IRouter) {
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	api.POST("/upload-outline", s.handleUploadOutline)
	api.POST("/process-listings", s.handleProcessListings)
	api.GET("/courses", s.handleGetCourses)
	api.GET("/courses/:code", s.handleGetCourse)
	api.POST("/courses", s.handlePostCourses)
}

func owner(c *gin.Context) string {
	if o := c.GetHeader(OwnerHeader); o != "" {
		return o
	}
	return defaultOwner
}

func (s Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readUpload(c *gin.Context) (filename string, html string, ok bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return "", "", false
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".html") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .html uploads are accepted"})
		return "", "", false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return "", "", false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return "", "", false
	}
	return header.Filename, string(content), true
}

func (s Server) handleUploadOutline(c *gin.Context) {
	filename, html, ok := readUpload(c)
	if !ok {
		return
	}

	res, err := s.service.ProcessUpload(
		c.Request.Context(), owner(c), filename, html,
		outlines.UploadOptions{},
	)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to process upload", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process upload"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s Server) handleProcessListings(c *gin.Context) {
	filename, html, ok := readUpload(c)
	if !ok {
		return
	}

	action := c.PostForm("action")
	if action == "" {
		action = "process"
	}
	if action != "process" && action != "parse_only" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be process or parse_only"})
		return
	}

	res, err := s.service.ProcessUpload(
		c.Request.Context(), owner(c), filename, html,
		outlines.UploadOptions{
			ParseOnly: action == "parse_only",
			Terms:     c.PostFormArray("terms"),
		},
	)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to process listings", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process listings"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s Server) handleGetCourses(c *gin.Context) {
	courses, err := s.service.Store().Load(c.Request.Context(), owner(c))
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to load courses", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (s Server) handleGetCourse(c *gin.Context) {
	course, found, err := s.service.Store().Get(
		c.Request.Context(), owner(c), c.Param("code"), c.Query("term"),
	)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to load course", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such course"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s Server) handlePostCourses(c *gin.Context) {
	var courses []outline.Course
	if err := c.ShouldBindJSON(&courses); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an array of courses"})
		return
	}
	for _, course := range courses {
		if course.Code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every course needs a code"})
			return
		}
	}

	added, updated, err := s.service.Store().Save(c.Request.Context(), owner(c), courses)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save courses", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "updated": updated})
}
