package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Validation constants
const (
	MaxPageSize   = 100
	MaxPageNumber = 1000000
	MaxUploadSize = 50 * 1024 * 1024 // 50MB
)

var allowedCSVExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

var allowedCSVContentTypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
	"text/plain":      true,
}

// RequestValidator handles all input validation
type RequestValidator struct{}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{}
}

// ParsePagination validates and parses pagination parameters
func (rv *RequestValidator) ParsePagination(c *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, errors.New("invalid page number")
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}

	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	if err != nil || perPage < 1 {
		return 0, 0, errors.New("invalid page size")
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	return page, perPage, nil
}

// IsValidCSVFile checks the upload by content type, then by extension.
func (rv *RequestValidator) IsValidCSVFile(file *multipart.FileHeader) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(file.Header.Get("Content-Type"), ";")[0]))
	if allowedCSVContentTypes[ct] {
		return true
	}
	return allowedCSVExtensions[strings.ToLower(filepath.Ext(file.Filename))]
}

// IsCSVBody reports whether a raw request body claims to be CSV.
func (rv *RequestValidator) IsCSVBody(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return allowedCSVContentTypes[ct]
}

// ValidateFileSize checks if file size is within limits
func (rv *RequestValidator) ValidateFileSize(file *multipart.FileHeader) error {
	if file.Size > MaxUploadSize {
		return fmt.Errorf("file too large (max %dMB)", MaxUploadSize/(1024*1024))
	}
	return nil
}
