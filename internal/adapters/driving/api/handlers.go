package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// tableField is the multipart field carrying the spreadsheet.
const tableField = "table"

func (s *Server) handleCreateBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	header, err := c.FormFile(tableField)
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("multipart field %q required: %w", tableField, domain.ErrInvalidInput))
		return
	}
	if err := s.ports.Generate.CheckTableName(header.Filename); err != nil {
		abort(c, statusFor(err), err)
		return
	}

	send, err := formBool(c, "send")
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	continueOnError, err := formBool(c, "continue_on_error")
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer f.Close()

	logger.Info("Upload %s (%d bytes), send=%t", header.Filename, header.Size, send)

	result, err := s.ports.Generate.Generate(c.Request.Context(), domain.GenerateRequest{
		TableName:       header.Filename,
		Table:           f,
		Deliver:         send,
		ContinueOnError: continueOnError,
	})
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"batch":   newResultJSON(result),
	})
}

func (s *Server) handleListBatches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		abort(c, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer: %w", domain.ErrInvalidInput))
		return
	}

	runs, err := s.ports.Batches.List(c.Request.Context(), limit)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	out := make([]runJSON, 0, len(runs))
	for i := range runs {
		out = append(out, newRunJSON(&runs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"batches": out,
		"count":   len(out),
	})
}

func (s *Server) handleGetBatch(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	run, err := s.ports.Batches.Get(ctx, id)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}
	deliveries, err := s.ports.Batches.Deliveries(ctx, id)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	body := gin.H{
		"success":    true,
		"batch":      newRunJSON(run),
		"deliveries": newDeliveriesJSON(deliveries),
	}
	if progress, err := s.ports.Batches.Status(id); err == nil && !progress.State.IsTerminal() {
		body["progress"] = newProgressJSON(progress)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleGetArchive(c *gin.Context) {
	run, err := s.ports.Batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}
	if run.ArchivePath == "" {
		abort(c, http.StatusNotFound, fmt.Errorf("batch %s has no archive: %w", run.ID, domain.ErrNotFound))
		return
	}
	if _, err := os.Stat(run.ArchivePath); err != nil {
		abort(c, http.StatusNotFound, fmt.Errorf("archive for batch %s is gone: %w", run.ID, domain.ErrNotFound))
		return
	}

	c.FileAttachment(run.ArchivePath, filepath.Base(run.ArchivePath))
}

// formBool reads an optional boolean form field.
func formBool(c *gin.Context, name string) (bool, error) {
	raw := c.PostForm(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", name, domain.ErrInvalidInput)
	}
	return v, nil
}
