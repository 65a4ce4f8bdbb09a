package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `
DENEME SINAVI SONUÇ BELGESİ
Adı Soyadı: AYŞE YILMAZ
Okul: Atatürk Anadolu Lisesi
Sınıf: 11/A
Kitapçık Türü: B
Deneme No: 3

Ders            Soru  Doğru Yanlış Boş   Net
Türkçe          40    30    6      4     28,5
Matematik (T)   40    22    10     8     19,5
Fizik           14    8     4      2     7
Kimya           13    9     2      2     8,5

Toplam Soru: 107
Doğru: 69
Yanlış: 22
Boş: 16
Net: 63,5
`

func TestParseLocalSampleReport(t *testing.T) {
	rec, err := ParseLocal(sampleReport)
	require.NoError(t, err)

	assert.Equal(t, "AYŞE YILMAZ", rec.StudentInfo.Name)
	assert.Equal(t, "Atatürk Anadolu Lisesi", rec.StudentInfo.School)
	assert.Equal(t, "11", rec.StudentInfo.Grade)
	assert.Equal(t, "A", rec.StudentInfo.ClassSection)
	assert.Equal(t, "B", rec.ExamInfo.BookletType)
	require.NotNil(t, rec.ExamInfo.ExamNumber)
	assert.Equal(t, 3, *rec.ExamInfo.ExamNumber)

	require.NotNil(t, rec.Overall.TotalQuestions)
	assert.Equal(t, 107.0, *rec.Overall.TotalQuestions)
	require.NotNil(t, rec.Overall.NetScore)
	assert.Equal(t, 63.5, *rec.Overall.NetScore)

	require.Contains(t, rec.Subjects, "Türkçe")
	turkce := rec.Subjects["Türkçe"]
	require.NotNil(t, turkce.NetScore)
	assert.Equal(t, 28.5, *turkce.NetScore)

	// "(T)" suffix is stripped during normalization.
	require.Contains(t, rec.Subjects, "Matematik")
	mat := rec.Subjects["Matematik"]
	require.NotNil(t, mat.Correct)
	assert.Equal(t, 22.0, *mat.Correct)
}

func TestParseLocalDerivesNetWhenMissing(t *testing.T) {
	text := `
Ad Soyad: MEHMET KAYA
Biyoloji   13   8   4   1
`
	rec, err := ParseLocal(text)
	require.NoError(t, err)

	bio, ok := rec.Subjects["Biyoloji"]
	require.True(t, ok)
	require.NotNil(t, bio.NetScore)
	assert.InDelta(t, 7.0, *bio.NetScore, 1e-9)

	// Overall totals summed from subject rows.
	require.NotNil(t, rec.Overall.TotalQuestions)
	assert.Equal(t, 13.0, *rec.Overall.TotalQuestions)
}

func TestParseLocalRejectsUnrelatedText(t *testing.T) {
	_, err := ParseLocal("lorem ipsum dolor sit amet")
	assert.Error(t, err)

	_, err = ParseLocal("   ")
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
}
