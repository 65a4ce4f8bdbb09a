package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Matematik (T)", "Matematik"},
		{"T.Matematik", "Matematik"},
		{"Temel Matematik", "Matematik"},
		{"  Fizik  ", "Fizik"},
		{"Din Kültürü ve Ahlak Bilgisi", "Din Kültürü"},
		{"Türk Dili ve Edebiyatı", "Edebiyat"},
		{"Biyoloji (A)", "Biyoloji"},
		{"Kimya", "Kimya"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeSubjectName(c.in), "input %q", c.in)
	}
}

func TestSubjectsMatch(t *testing.T) {
	assert.True(t, SubjectsMatch("Türkçe", "EDEBİYAT"))
	assert.True(t, SubjectsMatch("Matematik (T)", "Temel Matematik"))
	assert.True(t, SubjectsMatch("fizik", "Fizik"))
	assert.False(t, SubjectsMatch("Fizik", "Kimya"))
	assert.False(t, SubjectsMatch("Tarih", "Matematik"))
}

func TestPtrHelpers(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	p := StringPtr("x")
	if assert.NotNil(t, p) {
		assert.Equal(t, "x", *p)
	}
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "x", Deref(p))
}
