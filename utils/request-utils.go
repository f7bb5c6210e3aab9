package utils

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// MaxUploadSize caps a raw body and the in-memory part of a multipart
// upload.
const MaxUploadSize = 64 << 20

var (
	ErrNoParcelSource = errors.New("request carries neither a file nor a filepath")
	ErrBodyTooLarge   = fmt.Errorf("request body exceeds %d bytes", MaxUploadSize)
)

type MultipartResult struct {
	File       string
	Properties Properties
}

type Properties struct {
	FilePath string
	Format   string
}

// ReadParcelRequest extracts the parcel source of a request: a multipart
// form with an uploaded fileKey part or a "filepath" field, or a raw CSV
// body.
func ReadParcelRequest(r *http.Request, fileKey string) (MultipartResult, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	if mediaType == "multipart/form-data" {
		return ReadMultiPartForm(r, fileKey)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadSize+1))
	if err != nil {
		return MultipartResult{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxUploadSize {
		return MultipartResult{}, ErrBodyTooLarge
	}
	if strings.TrimSpace(string(body)) == "" {
		return MultipartResult{}, ErrNoParcelSource
	}
	return MultipartResult{File: string(body)}, nil
}

func ReadMultiPartForm(r *http.Request, fileKey string) (MultipartResult, error) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return MultipartResult{}, fmt.Errorf("parse multipart form: %w", err)
	}

	var result MultipartResult
	var fileHeader *multipart.FileHeader
	if files := r.MultipartForm.File[fileKey]; len(files) > 0 {
		fileHeader = files[0]
	}

	for key, value := range r.MultipartForm.Value {
		if len(value) == 0 {
			continue
		}
		switch key {
		case "filepath":
			result.Properties.FilePath = strings.TrimSpace(value[0])
		case "format":
			result.Properties.Format = strings.TrimSpace(value[0])
		}
	}

	if fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return MultipartResult{}, fmt.Errorf("open upload %s: %w", fileHeader.Filename, err)
		}
		defer file.Close()

		fullFile, err := io.ReadAll(file)
		if err != nil {
			return MultipartResult{}, fmt.Errorf("read upload %s: %w", fileHeader.Filename, err)
		}
		result.File = string(fullFile)
	}

	if result.File == "" && result.Properties.FilePath == "" {
		return MultipartResult{}, ErrNoParcelSource
	}
	return result, nil
}
