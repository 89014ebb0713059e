package filestore

import (
	"context"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestNewStore_Fail(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "no url", opts: Options{Bucket: "olia"}},
		{name: "no bucket", opts: Options{URL: "localhost:9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(context.Background(), tt.opts)
			assert.NotNil(t, err)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusForbidden}))
	assert.False(t, isNotFound(assert.AnError))
}
