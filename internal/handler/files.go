package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/document-registry/internal/service"
	"github.com/iliyamo/document-registry/internal/storage"
)

// FileHandler serves stored uploads by their storage reference.
type FileHandler struct {
	Files service.FileStore
}

func NewFileHandler(f service.FileStore) *FileHandler {
	return &FileHandler{Files: f}
}

// Get: GET {prefix}/:name.
func (h *FileHandler) Get(c echo.Context) error {
	name := c.Param("name")
	obj, err := h.Files.Open(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "File not found"})
		}
		return writeError(c, "open file", err)
	}
	defer obj.Close()

	if obj.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, obj.ContentType)
	}
	if rs, ok := obj.ReadCloser.(io.ReadSeeker); ok {
		http.ServeContent(c.Response(), c.Request(), name, obj.ModTime, rs)
		return nil
	}
	ct := obj.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, ct, obj)
}
