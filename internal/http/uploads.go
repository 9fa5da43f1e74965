package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"shopfront/internal/service"
)

const uploadField = "file"

type uploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

// @Summary Upload a file
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorResponse
// @Router /upload/file [post]
func (s *Server) uploadFile(c *gin.Context) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			err = service.ErrNoFile
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	rel, err := s.uploads.Save(c.Request.Context(), fh.Filename, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{Message: "File uploaded successfully", FilePath: rel})
}

// @Summary Download an uploaded file
// @Tags uploads
// @Produce octet-stream
// @Param filename path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} errorResponse
// @Router /upload/uploads/{filename} [get]
func (s *Server) getUpload(c *gin.Context) {
	p, err := s.uploads.Locate(c.Request.Context(), c.Param("filename"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ct := mime.TypeByExtension(filepath.Ext(p))
	if ct == "" {
		if m, err := mimetype.DetectFile(p); err == nil {
			ct = m.String()
		}
	}
	if ct != "" {
		c.Header("Content-Type", ct)
	}
	c.File(p)
}
