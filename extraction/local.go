// --- deneme-server/extraction/local.go ---
package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deneme-server/utils"
)

// Regexes for the fields Turkish exam report layouts print. The layouts vary
// between publishers, so each pattern accepts the common label variants.
var (
	nameRe    = regexp.MustCompile(`(?:Adı Soyadı|Ad Soyad|Öğrenci)[: \t]+([A-ZÇĞİÖŞÜa-zçğıöşü][A-ZÇĞİÖŞÜa-zçğıöşü .]+)`)
	schoolRe  = regexp.MustCompile(`(?:Okul|Kurum)[:\s]+([^\n]+)`)
	classRe   = regexp.MustCompile(`(?:Sınıf|Şube)[:\s]+([0-9]{1,2})[\s/\-]*([A-ZÇĞİÖŞÜ]?)`)
	bookletRe = regexp.MustCompile(`(?:Kitapçık|Kitapcik)(?:\s*Türü)?[:\s]+([A-E])\b`)
	examNoRe  = regexp.MustCompile(`(?:Deneme|Sınav)\s*(?:No|Sayısı)[:\s]+(\d+)`)

	totalRe   = regexp.MustCompile(`(?:Toplam Soru|Toplam)[:\s]+(\d+)`)
	correctRe = regexp.MustCompile(`(?:Doğru|D)[:\s]+(\d+)`)
	wrongRe   = regexp.MustCompile(`(?:Yanlış|Y)[:\s]+(\d+)`)
	blankRe   = regexp.MustCompile(`(?:Boş|B)[:\s]+(\d+)`)
	netRe     = regexp.MustCompile(`(?:Net|N)[:\s]+(\d+[.,]?\d*)`)

	// A subject row is a known subject name followed by at least four numbers:
	// total, correct, wrong, blank, optionally net.
	subjectRowRe = regexp.MustCompile(`^\s*([A-ZÇĞİÖŞÜ][A-ZÇĞİÖŞÜa-zçğıöşü.\s]+?(?:\s*\([A-Za-z]\))?)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)(?:\s+(\d+[.,]?\d*))?\s*$`)
)

// knownSubjects limits subject row matching so header lines and rank tables
// are not mistaken for scores.
var knownSubjects = []string{
	"Türkçe", "Matematik", "Geometri", "Fen", "Sosyal",
	"Fizik", "Kimya", "Biyoloji", "Tarih", "Coğrafya",
	"Felsefe", "Din Kültürü", "Edebiyat", "Yabancı Dil", "İngilizce",
}

// ParseLocal extracts a Record from the plain text of an exam report using
// regex matching. It is the deterministic counterpart to the Claude
// extraction and serves as its validation baseline.
func ParseLocal(text string) (*Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty document text")
	}

	rec := &Record{Subjects: make(map[string]SubjectScore)}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		rec.StudentInfo.Name = collapseSpaces(m[1])
	}
	if m := schoolRe.FindStringSubmatch(text); m != nil {
		rec.StudentInfo.School = collapseSpaces(m[1])
	}
	if m := classRe.FindStringSubmatch(text); m != nil {
		rec.StudentInfo.Grade = m[1]
		if m[2] != "" {
			rec.StudentInfo.ClassSection = m[2]
		}
	}
	if m := bookletRe.FindStringSubmatch(text); m != nil {
		rec.ExamInfo.BookletType = m[1]
	}
	if m := examNoRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			rec.ExamInfo.ExamNumber = &n
		}
	}

	parseOverall(text, rec)
	parseSubjectRows(text, rec)

	if rec.StudentInfo.Name == "" && len(rec.Subjects) == 0 && rec.Overall.TotalQuestions == nil {
		return nil, fmt.Errorf("document does not look like an exam report")
	}

	// Derive missing totals from the subject rows when the summary block
	// was not matched.
	if rec.Overall.TotalQuestions == nil && len(rec.Subjects) > 0 {
		sumOverallFromSubjects(rec)
	}
	if rec.Overall.NetScore == nil && rec.Overall.TotalCorrect != nil && rec.Overall.TotalWrong != nil {
		rec.Overall.NetScore = fptr(*rec.Overall.TotalCorrect - *rec.Overall.TotalWrong/4)
	}
	if rec.Overall.NetPercentage == nil && rec.Overall.NetScore != nil &&
		rec.Overall.TotalQuestions != nil && *rec.Overall.TotalQuestions > 0 {
		rec.Overall.NetPercentage = fptr(*rec.Overall.NetScore / *rec.Overall.TotalQuestions * 100)
	}

	return rec, nil
}

func parseOverall(text string, rec *Record) {
	if m := totalRe.FindStringSubmatch(text); m != nil {
		rec.Overall.TotalQuestions = parseNumber(m[1])
	}
	if m := correctRe.FindStringSubmatch(text); m != nil {
		rec.Overall.TotalCorrect = parseNumber(m[1])
	}
	if m := wrongRe.FindStringSubmatch(text); m != nil {
		rec.Overall.TotalWrong = parseNumber(m[1])
	}
	if m := blankRe.FindStringSubmatch(text); m != nil {
		rec.Overall.TotalBlank = parseNumber(m[1])
	}
	if m := netRe.FindStringSubmatch(text); m != nil {
		rec.Overall.NetScore = parseNumber(m[1])
	}
}

func parseSubjectRows(text string, rec *Record) {
	for _, line := range strings.Split(text, "\n") {
		m := subjectRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := utils.NormalizeSubjectName(m[1])
		if !isKnownSubject(name) {
			continue
		}
		score := SubjectScore{
			TotalQuestions: parseNumber(m[2]),
			Correct:        parseNumber(m[3]),
			Wrong:          parseNumber(m[4]),
			Blank:          parseNumber(m[5]),
		}
		if m[6] != "" {
			score.NetScore = parseNumber(m[6])
		} else if score.Correct != nil && score.Wrong != nil {
			score.NetScore = fptr(*score.Correct - *score.Wrong/4)
		}
		if score.NetScore != nil && score.TotalQuestions != nil && *score.TotalQuestions > 0 {
			score.NetPercentage = fptr(*score.NetScore / *score.TotalQuestions * 100)
		}
		rec.Subjects[name] = score
	}
}

func sumOverallFromSubjects(rec *Record) {
	var total, correct, wrong, blank float64
	for _, s := range rec.Subjects {
		if s.TotalQuestions != nil {
			total += *s.TotalQuestions
		}
		if s.Correct != nil {
			correct += *s.Correct
		}
		if s.Wrong != nil {
			wrong += *s.Wrong
		}
		if s.Blank != nil {
			blank += *s.Blank
		}
	}
	rec.Overall.TotalQuestions = fptr(total)
	rec.Overall.TotalCorrect = fptr(correct)
	rec.Overall.TotalWrong = fptr(wrong)
	rec.Overall.TotalBlank = fptr(blank)
}

func isKnownSubject(name string) bool {
	for _, s := range knownSubjects {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// parseNumber handles both "12.5" and the Turkish "12,5" decimal form.
func parseNumber(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
