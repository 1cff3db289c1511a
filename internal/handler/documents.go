package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/document-registry/internal/service"
	"github.com/iliyamo/document-registry/internal/storage"
)

// DocumentHandler serves the /data routes.
type DocumentHandler struct {
	Docs *service.DocumentService
}

func NewDocumentHandler(d *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Docs: d}
}

type recordReq struct {
	Date     string `json:"date" form:"date"`
	Sender   string `json:"sender" form:"sender"`
	Receiver string `json:"receiver" form:"receiver"`
	Subject  string `json:"subject" form:"subject"`
	File     string `json:"file" form:"file"`
	Note     string `json:"note" form:"note"`
}

func (r recordReq) input() service.RecordInput {
	return service.RecordInput{Date: r.Date, Sender: r.Sender, Receiver: r.Receiver, Subject: r.Subject, File: r.File, Note: r.Note}
}

// List: GET /data/get.  All records, storage order, no paging.
func (h *DocumentHandler) List(c echo.Context) error {
	recs, err := h.Docs.List(c.Request().Context())
	if err != nil {
		return writeError(c, "list records", err)
	}
	return c.JSON(http.StatusOK, recs)
}

// Create: POST /data/add.  multipart/form-data with an optional "file"
// part; JSON bodies are accepted for records without a file.
func (h *DocumentHandler) Create(c echo.Context) error {
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.File = "" // the reference is always generated server side

	var upload *storage.Upload
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		src, err := fh.Open()
		if err != nil {
			return writeError(c, "open upload", err)
		}
		defer src.Close()
		upload = &storage.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        src,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid file upload"})
	}

	id, err := h.Docs.Create(c.Request().Context(), req.input(), upload)
	if err != nil {
		return writeError(c, "create record", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Data added successfully", "id": id})
}

// Update: PUT /data/update/:id.
func (h *DocumentHandler) Update(c echo.Context) error {
	id, ok := recordID(c)
	if !ok {
		return writeError(c, "update record", service.ErrNotFound)
	}
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := h.Docs.Update(c.Request().Context(), id, req.input()); err != nil {
		return writeError(c, "update record", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Data updated successfully"})
}

// Delete: DELETE /data/delete/:id.
func (h *DocumentHandler) Delete(c echo.Context) error {
	id, ok := recordID(c)
	if !ok {
		return writeError(c, "delete record", service.ErrNotFound)
	}
	if err := h.Docs.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, "delete record", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Data deleted successfully"})
}

// recordID parses :id.  A non-numeric id cannot match any row, so callers
// answer it as not found.
func recordID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
