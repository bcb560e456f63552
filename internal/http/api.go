package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"presentai/internal/auth"
	"presentai/internal/domain"
	"presentai/internal/generator"
	"presentai/internal/service"
	"presentai/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	presentations service.PresentationService
	manager       generator.Manager
	storage       storage.Service
	tokens        *auth.TokenManager
	bucket        string
	uploadRoot    string
}

func NewHandler(
	users service.UserService,
	presentations service.PresentationService,
	manager generator.Manager,
	store storage.Service,
	tokens *auth.TokenManager,
	bucket, uploadRoot string,
) *Handler {
	return &Handler{
		users:         users,
		presentations: presentations,
		manager:       manager,
		storage:       store,
		tokens:        tokens,
		bucket:        bucket,
		uploadRoot:    uploadRoot,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running...")
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	user := router.Group("/user")
	{
		user.POST("/signup", h.signup)
		user.POST("/login", h.login)
		user.GET("/getProfile", authRequired(h.tokens), h.getProfile)
	}

	router.GET("/presentations/templates", h.listTemplates)

	presentations := router.Group("/presentations", authRequired(h.tokens))
	{
		presentations.POST("/generate", h.generatePresentation)
		presentations.GET("", h.listPresentations)
		presentations.GET("/:id", h.getPresentation)
		presentations.GET("/:id/download", h.downloadDeckFile)
		presentations.DELETE("/:id", h.deletePresentation)
		presentations.POST("/uploadpdf", h.uploadPDF)
		presentations.POST("/convert", h.convertToPPT)
	}

	router.GET("/storage/objects", authRequired(h.tokens), h.listObjects)
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "message": "User created successfully"})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "message": "Login successful"})
}

type profileResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	})
}

// writeAuthError translates service sentinels to status codes. Everything
// unexpected collapses to a generic 500 so internals never leak.
func (h *Handler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email and password are required"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}

type generateRequest struct {
	Prompt     string `json:"prompt"`
	TemplateID int    `json:"templateId"`
	SlideCount int    `json:"slideCount"`
	Duration   int    `json:"duration"`
	Tone       string `json:"tone"`
}

func (h *Handler) generatePresentation(c *gin.Context) {
	userID, _ := userIDFrom(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "prompt and templateId are required"})
		return
	}

	p, err := h.presentations.CreateRequest(c.Request.Context(), userID, service.GenerateInput{
		Prompt:     req.Prompt,
		TemplateID: req.TemplateID,
		SlideCount: req.SlideCount,
		Duration:   req.Duration,
		Tone:       req.Tone,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "prompt and templateId are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	if err := h.manager.Enqueue(c.Request.Context(), p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":      "Generation request received",
		"presentation": presentationToResponse(*p),
	})
}

func (h *Handler) listPresentations(c *gin.Context) {
	userID, _ := userIDFrom(c)

	presentations, err := h.presentations.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	resp := make([]PresentationResponse, len(presentations))
	for i := range presentations {
		resp[i] = presentationToResponse(presentations[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getPresentation(c *gin.Context) {
	userID, _ := userIDFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid presentation id"})
		return
	}

	p, err := h.presentations.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Presentation not found"})
		return
	}

	c.JSON(http.StatusOK, presentationToResponse(*p))
}

// downloadDeckFile hands out a time-limited link to one file of an uploaded
// deck. Defaults to the manifest; slides are addressed by their file name.
func (h *Handler) downloadDeckFile(c *gin.Context) {
	userID, _ := userIDFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid presentation id"})
		return
	}

	p, err := h.presentations.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Presentation not found"})
		return
	}
	if p.Status != domain.PresentationStatusCompleted || p.S3Location == "" {
		c.JSON(http.StatusConflict, gin.H{"message": "Presentation is not uploaded yet"})
		return
	}
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "storage service not configured"})
		return
	}

	file := c.DefaultQuery("file", "deck.json")
	if file != filepath.Base(file) || file == "." || file == ".." {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid file name"})
		return
	}

	prefix, err := extractS3Prefix(p.S3Location, h.bucket)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	const linkTTL = 15 * time.Minute
	url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, prefix+"/"+file, linkTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(linkTTL.Seconds()),
	})
}

func (h *Handler) deletePresentation(c *gin.Context) {
	userID, _ := userIDFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid presentation id"})
		return
	}

	deleteRemote, err := strconv.ParseBool(c.DefaultQuery("delete_remote", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid flag delete_remote"})
		return
	}

	p, err := h.presentations.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Presentation not found"})
		return
	}

	var warnings []string
	if h.manager != nil {
		cancelCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		if err := h.manager.Cancel(cancelCtx, p.ID); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			warnings = append(warnings, fmt.Sprintf("cancel job: %v", err))
		}
	}

	if deleteRemote && p.S3Location != "" {
		if h.storage == nil || h.bucket == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "storage service not configured"})
			return
		}
		prefix, err := extractS3Prefix(p.S3Location, h.bucket)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		remoteCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		if err := h.storage.DeletePrefix(remoteCtx, h.bucket, prefix); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete remote data: %v", err))
		}
	}

	if p.LocalPath != "" {
		if err := os.RemoveAll(filepath.Clean(p.LocalPath)); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("remove local data: %v", err))
		}
	}

	if err := h.presentations.DeletePresentation(c.Request.Context(), p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	resp := gin.H{"deleted": p.ID}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

type uploadedFileResponse struct {
	OriginalName string `json:"originalname"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

func (h *Handler) uploadPDF(c *gin.Context) {
	file, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	if err := os.MkdirAll(h.uploadRoot, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))
	dest := filepath.Join(h.uploadRoot, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"file": uploadedFileResponse{
			OriginalName: file.Filename,
			Filename:     name,
			Path:         dest,
			Size:         file.Size,
		},
	})
}

func (h *Handler) convertToPPT(c *gin.Context) {
	// conversion pipeline does not exist yet; acknowledge so clients can poll
	c.JSON(http.StatusOK, gin.H{"message": "Conversion to PPT is not available yet"})
}

type TemplateResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) listTemplates(c *gin.Context) {
	templates := h.presentations.Templates()
	resp := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		resp[i] = TemplateResponse{ID: t.ID, Name: t.Name, Description: t.Description}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listObjects(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "storage service not configured"})
		return
	}

	prefix := c.Query("prefix")
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

type PresentationResponse struct {
	ID           int64                     `json:"id"`
	Prompt       string                    `json:"prompt"`
	TemplateID   int                       `json:"templateId"`
	SlideCount   int                       `json:"slideCount"`
	Duration     int                       `json:"duration"`
	Tone         string                    `json:"tone"`
	Status       domain.PresentationStatus `json:"status"`
	DeckName     string                    `json:"deck_name"`
	S3Location   string                    `json:"s3_location"`
	ErrorMessage string                    `json:"error_message"`
	CreatedAt    string                    `json:"created_at"`
	UpdatedAt    string                    `json:"updated_at"`
	GeneratedAt  *string                   `json:"generated_at,omitempty"`
	UploadedAt   *string                   `json:"uploaded_at,omitempty"`
	Slides       []SlideResponse           `json:"slides"`
}

type SlideResponse struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func presentationToResponse(p domain.Presentation) PresentationResponse {
	resp := PresentationResponse{
		ID:           p.ID,
		Prompt:       p.Prompt,
		TemplateID:   p.TemplateID,
		SlideCount:   p.SlideCount,
		Duration:     p.Duration,
		Tone:         p.Tone,
		Status:       p.Status,
		DeckName:     p.DeckName,
		S3Location:   p.S3Location,
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
		Slides:       make([]SlideResponse, len(p.Slides)),
	}
	if p.GeneratedAt != nil {
		v := p.GeneratedAt.Format(time.RFC3339)
		resp.GeneratedAt = &v
	}
	if p.UploadedAt != nil {
		v := p.UploadedAt.Format(time.RFC3339)
		resp.UploadedAt = &v
	}
	for i := range p.Slides {
		resp.Slides[i] = SlideResponse{
			ID:       p.Slides[i].ID,
			Position: p.Slides[i].Position,
			Title:    p.Slides[i].Title,
			Body:     p.Slides[i].Body,
		}
	}
	return resp
}

func extractS3Prefix(location, bucket string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("invalid s3 location")
	}
	if bucket != "" && parts[0] != bucket {
		return "", fmt.Errorf("s3 bucket mismatch")
	}
	if len(parts) == 1 {
		return "", fmt.Errorf("s3 prefix missing")
	}
	return strings.TrimPrefix(parts[1], "/"), nil
}
