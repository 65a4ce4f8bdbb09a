package utils

import (
	"regexp"
	"strings"
)

// Suffix like "(T)" that some report layouts append to subject names.
var subjectSuffixRe = regexp.MustCompile(`\s*\([A-Za-z]\)\s*$`)

// subjectMappings folds the spelling variants seen across report layouts
// into one canonical name per subject.
var subjectMappings = map[string]string{
	"T.Matematik":                  "Matematik",
	"Temel Matematik":              "Matematik",
	"T.Mat":                        "Matematik",
	"Mat":                          "Matematik",
	"Fen Bilimleri":                "Fen",
	"Sosyal Bilimler":              "Sosyal",
	"Sosyal Bilgiler":              "Sosyal",
	"Din Kültürü ve Ahlak Bilgisi": "Din Kültürü",
	"Din Kültürü ve Ahlâk Bilgisi": "Din Kültürü",
	"T.Dili ve Edebiyatı":          "Edebiyat",
	"Türk Dili ve Edebiyatı":       "Edebiyat",
}

// ProgramSubjects lists which subjects count toward each exam program.
var ProgramSubjects = map[string][]string{
	"MF":    {"Matematik", "Fizik", "Kimya", "Biyoloji"},
	"TM":    {"Matematik", "Edebiyat", "Tarih", "Coğrafya"},
	"SÖZEL": {"Edebiyat", "Tarih", "Coğrafya", "Felsefe", "Din Kültürü"},
	"DİL":   {"Edebiyat", "Yabancı Dil"},
}

// SubjectAliases groups the names a subject may appear under in learning
// outcome rows versus subject result rows.
var SubjectAliases = map[string][]string{
	"Türkçe":      {"Türkçe", "TÜRKÇE", "EDEBİYAT", "Edebiyat", "TÜRK DİLİ VE EDEBİYATI"},
	"Matematik":   {"Matematik", "MATEMATİK", "TEMEL MATEMATİK", "GEOMETRİ"},
	"Fen":         {"Fen", "FEN BİLİMLERİ", "FİZİK", "KİMYA", "BİYOLOJİ"},
	"Sosyal":      {"Sosyal", "SOSYAL BİLİMLER", "TARİH", "COĞRAFYA", "FELSEFE"},
	"Edebiyat":    {"Edebiyat", "EDEBİYAT", "TÜRK DİLİ VE EDEBİYATI", "Türkçe"},
	"Fizik":       {"Fizik", "FİZİK"},
	"Kimya":       {"Kimya", "KİMYA"},
	"Biyoloji":    {"Biyoloji", "BİYOLOJİ"},
	"Tarih":       {"Tarih", "TARİH"},
	"Coğrafya":    {"Coğrafya", "COĞRAFYA"},
	"Felsefe":     {"Felsefe", "FELSEFE"},
	"Din Kültürü": {"Din Kültürü", "DİN KÜLTÜRÜ", "DİN KÜLTÜRÜ VE AHLAK BİLGİSİ"},
}

// NormalizeSubjectName canonicalizes a subject name as printed on a report:
// trims whitespace, strips a trailing booklet marker like "(T)", and folds
// known spelling variants into one form.
func NormalizeSubjectName(name string) string {
	name = strings.TrimSpace(name)
	name = subjectSuffixRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if mapped, ok := subjectMappings[name]; ok {
		return mapped
	}
	return name
}

// SubjectsMatch reports whether two subject names refer to the same subject,
// directly or through a shared alias group.
func SubjectsMatch(a, b string) bool {
	a = NormalizeSubjectName(a)
	b = NormalizeSubjectName(b)
	if strings.EqualFold(a, b) {
		return true
	}
	for _, aliases := range SubjectAliases {
		foundA, foundB := false, false
		for _, alias := range aliases {
			if strings.EqualFold(alias, a) {
				foundA = true
			}
			if strings.EqualFold(alias, b) {
				foundB = true
			}
		}
		if foundA && foundB {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the value of p, or the zero value when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
