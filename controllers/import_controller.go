package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/errors"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/logger"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sseKeepAlive = 15 * time.Second

// ImportController exposes the catalog import jobs to admins.
type ImportController struct {
	manager   ImportManager
	validator *RequestValidator
	timeout   time.Duration
}

func NewImportController(m ImportManager, v *RequestValidator) *ImportController {
	if v == nil {
		v = NewRequestValidator()
	}
	return &ImportController{
		manager:   m,
		validator: v,
		timeout:   DefaultContextTimeout,
	}
}

// Template serves the CSV header admins fill in.
func (ic *ImportController) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="product_import_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(ic.manager.Template()))
}

// CreateImport accepts a multipart "file" field or a raw text/csv body. With
// ?queue=true the payload goes through the Redis queue instead of starting here.
func (ic *ImportController) CreateImport(c *gin.Context) {
	raw, err := ic.readPayload(c)
	if err != nil {
		_ = c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	queued := strings.EqualFold(strings.TrimSpace(c.Query("queue")), "true")
	var job *services.Job
	if queued {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
		defer cancel()
		job, err = ic.manager.Enqueue(ctx, raw)
	} else {
		job, err = ic.manager.Start(raw)
	}
	if err != nil {
		logger.Error(c, "Failed to start import job", err, zap.Bool("queued", queued))
		_ = c.Error(mapJobError(err))
		return
	}

	logger.Info(c, "Import job accepted", zap.String("job_id", job.ID()), zap.Bool("queued", queued))
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID(),
		"status": job.State().Status,
		"queued": queued,
	})
}

// ListImports returns every job held by this process, newest first.
func (ic *ImportController) ListImports(c *gin.Context) {
	jobs := ic.manager.List()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// GetImport returns the latest status record of a job.
func (ic *ImportController) GetImport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rec, err := ic.manager.Status(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetImportResult returns the terminal summary. Failed jobs have none and
// answer with their fault; jobs still in flight answer 409.
func (ic *ImportController) GetImportResult(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rec, err := ic.manager.Status(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(mapJobError(err))
		return
	}
	if rec.State.Status == models.JobStatusFailed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Import job failed before producing a result",
			"status": rec.State.Status,
			"fault":  rec.State.Fault,
		})
		return
	}
	// a cancelled job is terminal before its in-flight row settles
	if rec.Result == nil {
		_ = c.Error(apperrors.Conflict("Import job has not finished", nil))
		return
	}
	c.JSON(http.StatusOK, rec.Result)
}

func (ic *ImportController) PauseImport(c *gin.Context) {
	ic.control(c, "pause", ic.manager.Pause)
}

func (ic *ImportController) ResumeImport(c *gin.Context) {
	ic.control(c, "resume", ic.manager.Resume)
}

func (ic *ImportController) CancelImport(c *gin.Context) {
	ic.control(c, "cancel", ic.manager.Cancel)
}

// StreamImport pushes progress updates as server-sent events until the job
// ends or the client goes away.
func (ic *ImportController) StreamImport(c *gin.Context) {
	job, ok := ic.manager.Get(c.Param("id"))
	if !ok {
		_ = c.Error(apperrors.NotFound("Import job not found"))
		return
	}

	updates, unsubscribe := job.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case u, ok := <-updates:
			if !ok {
				return false
			}
			event := "progress"
			if u.Final {
				event = "done"
			}
			c.SSEvent(event, u)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (ic *ImportController) control(c *gin.Context, action string, op func(string) error) {
	id := c.Param("id")
	if err := op(id); err != nil {
		_ = c.Error(mapJobError(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	rec, err := ic.manager.Status(ctx, id)
	if err != nil {
		_ = c.Error(mapJobError(err))
		return
	}
	logger.Info(c, "Import job control applied", zap.String("job_id", id), zap.String("action", action))
	c.JSON(http.StatusOK, rec.State)
}

func (ic *ImportController) readPayload(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			return "", errors.New("file is required")
		}
		if !ic.validator.IsValidCSVFile(file) {
			return "", errors.New("invalid file type. Only CSV files are allowed")
		}
		if err := ic.validator.ValidateFileSize(file); err != nil {
			return "", err
		}
		fh, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open file: %w", err)
		}
		defer fh.Close()
		data, err := io.ReadAll(fh)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	if !ic.validator.IsCSVBody(c.ContentType()) {
		return "", errors.New("expected a multipart file upload or a text/csv body")
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", errors.New("request body is empty")
	}
	return string(data), nil
}

func mapJobError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		return apperrors.NotFound("Import job not found")
	case errors.Is(err, services.ErrInvalidTransition):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, services.ErrQueueUnavailable):
		return apperrors.Unavailable("Import queue is not available", err)
	default:
		return apperrors.Internal(err)
	}
}
