package httpapi

import (
	"context"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/feedbackd/internal/server/intake"
	"github.com/dmitrijs2005/feedbackd/internal/server/models"
	"github.com/gin-gonic/gin"
)

// multipartMemory is how much of a form is kept in memory before file parts
// spill to temporary files.
const multipartMemory = 8 << 20

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerResponse struct {
	Message string              `json:"message"`
	User    *models.UserSummary `json:"user"`
}

type loginResponse struct {
	Message string              `json:"message"`
	Token   string              `json:"token"`
	User    *models.UserSummary `json:"user"`
}

type feedbackResponse struct {
	Message  string               `json:"message"`
	Feedback *models.FeedbackView `json:"feedback"`
}

// errBadRating is reported when the rating form field is not a number.
var errBadRating = errors.New("rating must be a number")

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user", user.ID)
	c.JSON(http.StatusCreated, registerResponse{Message: "User registered successfully", User: user})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, user, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: token, User: user})
}

func (s *HTTPServer) uploadFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := UserIDFromContext(ctx)

	fields, stored, ok := s.readFeedbackForm(c)
	if !ok {
		return
	}

	view, err := s.feedback.Add(ctx, userID, fields)
	if err != nil {
		s.intake.Discard(ctx, stored)
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, feedbackResponse{Message: "Feedback added successfully", Feedback: view})
}

func (s *HTTPServer) updateFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := UserIDFromContext(ctx)
	id := c.Param("id")

	// Malformed, missing and foreign ids are rejected before any media is stored.
	if _, err := s.feedback.Get(ctx, userID, id); err != nil {
		s.writeError(c, err)
		return
	}

	fields, stored, ok := s.readFeedbackForm(c)
	if !ok {
		return
	}

	view, err := s.feedback.Update(ctx, userID, id, fields)
	if err != nil {
		s.intake.Discard(ctx, stored)
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedbackResponse{Message: "Feedback updated successfully", Feedback: view})
}

func (s *HTTPServer) listFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := UserIDFromContext(ctx)

	items, err := s.feedback.List(ctx, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *HTTPServer) getFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := UserIDFromContext(ctx)

	item, err := s.feedback.Get(ctx, userID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *HTTPServer) deleteFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := UserIDFromContext(ctx)

	if _, err := s.feedback.Delete(ctx, userID, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Feedback deleted successfully"})
}

func (s *HTTPServer) health(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.logger.Error(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readFeedbackForm parses the request form, stores its media and returns the
// resulting fields. On failure the response has already been written.
func (s *HTTPServer) readFeedbackForm(c *gin.Context) (models.FeedbackFields, *intake.Media, bool) {
	ctx := c.Request.Context()

	form, err := s.parseForm(c)
	if err != nil {
		if errors.Is(err, multipart.ErrMessageTooLarge) || isTooLarge(err) {
			abortWithMessage(c, http.StatusRequestEntityTooLarge, "Request body too large")
		} else {
			abortWithMessage(c, http.StatusBadRequest, "Invalid form data")
		}
		return models.FeedbackFields{}, nil, false
	}
	defer s.removeFormFiles(ctx, form)

	fields, err := parseFields(form.Value)
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Rating must be a number")
		return models.FeedbackFields{}, nil, false
	}

	stored, err := s.intake.Store(ctx, form)
	if err != nil {
		s.writeError(c, err)
		return models.FeedbackFields{}, nil, false
	}
	fields.Video, fields.Audio = stored.Video, stored.Audio

	return fields, stored, true
}

// removeFormFiles deletes the temporary files of parts that did not fit in
// memory. The auth middleware swaps c.Request, so net/http does not clean them.
func (s *HTTPServer) removeFormFiles(ctx context.Context, form *multipart.Form) {
	if err := form.RemoveAll(); err != nil {
		s.logger.Warn(ctx, "could not remove multipart temp files", "error", err)
	}
}

// parseForm reads a multipart body, capped at MaxUploadBytes. URL-encoded
// bodies are accepted too; they simply carry no media.
func (s *HTTPServer) parseForm(c *gin.Context) (*multipart.Form, error) {
	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	err := c.Request.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
		return c.Request.MultipartForm, nil
	case errors.Is(err, http.ErrNotMultipart):
		return &multipart.Form{Value: c.Request.PostForm}, nil
	default:
		return nil, err
	}
}

func parseFields(values map[string][]string) (models.FeedbackFields, error) {
	var fields models.FeedbackFields

	if v, ok := firstValue(values, "rating"); ok && strings.TrimSpace(v) != "" {
		rating, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
			return fields, errBadRating
		}
		fields.Rating = &rating
	}

	if v, ok := firstValue(values, "feedback"); ok {
		fields.Comment = &v
	}

	return fields, nil
}

func firstValue(values map[string][]string, key string) (string, bool) {
	vs := values[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
