package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteSuccess(t *testing.T) {
	req := require.New(t)
	rec := httptest.NewRecorder()

	WriteSuccess(rec, http.StatusCreated, map[string]string{"id": "s1"})

	req.Equal(http.StatusCreated, rec.Code)
	req.Equal("application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Error   *ErrorBody        `json:"error"`
		Meta    Meta              `json:"meta"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.True(body.Success)
	req.Equal("s1", body.Data["id"])
	req.Nil(body.Error)
	req.NotEmpty(body.Meta.Timestamp)
}

func TestWriteError(t *testing.T) {
	req := require.New(t)
	rec := httptest.NewRecorder()

	WriteError(rec, http.StatusNotFound, CodeSessionNotFound, "session not found")

	req.Equal(http.StatusNotFound, rec.Code)
	var body Envelope
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.False(body.Success)
	req.NotNil(body.Error)
	req.Equal(CodeSessionNotFound, body.Error.Code)
	req.Equal("session not found", body.Error.Message)
	req.NotNil(body.Error.Details)
}
