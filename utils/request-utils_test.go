package utils

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != "" {
		part, err := w.CreateFormFile("file", "parcels.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestReadParcelRequestMultipartFile(t *testing.T) {
	req := multipartRequest(t, map[string]string{"format": "csv"}, "OBJECTID;PAR_ID\n")
	res, err := ReadParcelRequest(req, "file")
	require.NoError(t, err)
	assert.Equal(t, "OBJECTID;PAR_ID\n", res.File)
	assert.Equal(t, "csv", res.Properties.Format)
}

func TestReadParcelRequestFilePath(t *testing.T) {
	req := multipartRequest(t, map[string]string{"filepath": " /data/parcels.csv "}, "")
	res, err := ReadParcelRequest(req, "file")
	require.NoError(t, err)
	assert.Empty(t, res.File)
	assert.Equal(t, "/data/parcels.csv", res.Properties.FilePath)
}

func TestReadParcelRequestRawBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("a;b\n1;2\n"))
	req.Header.Set("Content-Type", "text/csv")
	res, err := ReadParcelRequest(req, "file")
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", res.File)
}

func TestReadParcelRequestEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("  "))
	_, err := ReadParcelRequest(req, "file")
	assert.True(t, errors.Is(err, ErrNoParcelSource))

	_, err = ReadParcelRequest(multipartRequest(t, nil, ""), "file")
	assert.True(t, errors.Is(err, ErrNoParcelSource))
}

func TestReadParcelRequestBodyTooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a;b\n"), MaxUploadSize/4)
	body = append(body, "1;2\n1;2\n"...)
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	_, err := ReadParcelRequest(req, "file")
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	req = httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body[:MaxUploadSize]))
	res, err := ReadParcelRequest(req, "file")
	require.NoError(t, err)
	assert.Len(t, res.File, MaxUploadSize)
}
