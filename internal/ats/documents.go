package ats

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/pkg/response"
)

// uploadDocument handles POST /documents/upload. The multipart "file" part is stored
// base64-encoded in the documents row together with its name, type and size.
func (a *API) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.opts.MaxUploadBytes+(1<<20))

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "File is required")
		return
	}
	if fh.Size > a.opts.MaxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", a.opts.MaxUploadBytes))
		return
	}

	rec := model.Record{}
	for _, field := range []string{"applicant_id", "application_id"} {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			response.Error(c, http.StatusBadRequest, "Invalid "+field)
			return
		}
		rec[field] = n
	}

	f, err := fh.Open()
	if err != nil {
		a.logger.Error().Err(err).Str("file", fh.Filename).Msg("Failed to open upload")
		response.Error(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, a.opts.MaxUploadBytes+1))
	if err != nil {
		a.logger.Error().Err(err).Str("file", fh.Filename).Msg("Failed to read upload")
		response.Error(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	rec["file_name"] = filepath.Base(fh.Filename)
	rec["mime_type"] = mimeType
	rec["size_bytes"] = int64(len(data))
	rec["content"] = base64.StdEncoding.EncodeToString(data)

	a.Factory(Documents.Resource).CreateRecord(c, rec)
}

// downloadDocument handles GET /documents/:id/download by decoding the stored content.
func (a *API) downloadDocument(c *gin.Context) {
	rec, ok := a.Factory(Documents.Resource).Lookup(c)
	if !ok {
		return
	}
	encoded, _ := rec["content"].(string)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		a.logger.Error().Err(err).Interface("document_id", rec["document_id"]).Msg("Stored document is not valid base64")
		response.Error(c, http.StatusInternalServerError, "Failed to decode Document content")
		return
	}

	name, _ := rec["file_name"].(string)
	if name == "" {
		name = "document"
	}
	mimeType, _ := rec["mime_type"].(string)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, mimeType, data)
}
