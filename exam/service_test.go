package exam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deneme-server/extraction"
)

const sampleReportText = `
Adı Soyadı: AYŞE YILMAZ
Okul: Atatürk Anadolu Lisesi
Kitapçık Türü: B

Türkçe          40    30    6      4     28,5
Matematik       40    22    10     8     19,5

Toplam Soru: 80
Doğru: 52
Yanlış: 16
Boş: 12
Net: 48
`

func TestProcessDocumentClaudeFailureAbortsUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	client := extraction.NewClaudeClient("test-key", "claude-test", 1024)
	client.SetBaseURL(srv.URL)
	svc := NewService(nil, client, 0)

	resp, err := svc.processDocument(context.Background(), "student-1", "Deneme 3",
		time.Now(), "exam.pdf", sampleReportText, []byte("%PDF-1.4"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "claude extraction failed")
	assert.Nil(t, resp)
}

func TestProcessUploadRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	svc := NewService(nil, extraction.NewClaudeClient("", "", 0), 0)
	_, err := svc.ProcessUpload(context.Background(), "student-1", "Deneme 1", time.Now(), path)

	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed upload should not leave the PDF behind")
}

func TestMarshalNullable(t *testing.T) {
	data, err := marshalNullable(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	rec := &extraction.Record{Subjects: map[string]extraction.SubjectScore{}}
	rec.StudentInfo.Name = "Test"
	data, err = marshalNullable(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Test"`)
}

func TestNumericCoercion(t *testing.T) {
	v := 39.6
	assert.Equal(t, 40, intOrZero(&v))
	assert.Equal(t, 0, intOrZero(nil))
	assert.Equal(t, 39.6, floatOrZero(&v))
	assert.Equal(t, 0.0, floatOrZero(nil))
	assert.Nil(t, intOrNil(nil))
	if p := intOrNil(&v); assert.NotNil(t, p) {
		assert.Equal(t, 40, *p)
	}
}
