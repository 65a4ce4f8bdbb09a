// Package validation reconciles the two independent extractions of an exam
// report (Claude and the local parser) into a single report describing where
// they agree and where they diverge. The engine is pure: it touches no I/O
// and no database, which keeps every rule unit testable.
package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"deneme-server/extraction"
	"deneme-server/utils"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"

	StatusPassed  = "passed"
	StatusWarning = "warning"
	StatusFailed  = "failed"

	// DefaultTolerance is the relative difference allowed between the two
	// sources for a numeric field before it is flagged.
	DefaultTolerance = 0.10

	// NetCheckTolerance is the tighter bound on the internal consistency
	// check that recomputes the net score from correct and wrong counts.
	NetCheckTolerance = 0.05

	nameSimilarityThreshold   = 0.8
	schoolSimilarityThreshold = 0.7

	// Net scores below this magnitude are compared absolutely, since the
	// relative difference of near-zero values is meaningless.
	zeroThreshold = 0.01
)

// Issue records one field where the two extractions disagree.
type Issue struct {
	Field       string      `json:"field"`
	Severity    string      `json:"severity"`
	ClaudeValue interface{} `json:"claude_value"`
	LocalValue  interface{} `json:"local_value"`
	Message     string      `json:"message"`
}

// Report is the outcome of reconciling the two extractions. Only errors and
// warnings drive the status; info issues are advisory context for the
// reviewer.
type Report struct {
	Status       string  `json:"status"`
	Summary      string  `json:"summary"`
	ErrorCount   int     `json:"error_count"`
	WarningCount int     `json:"warning_count"`
	InfoCount    int     `json:"info_count"`
	TotalIssues  int     `json:"total_issues"`
	Issues       []Issue `json:"issues"`
}

// Validate compares the Claude extraction against the local parser baseline
// and returns a report. A tolerance of zero or less falls back to
// DefaultTolerance. Each comparison pass returns its own issues; none of
// them share state, so the passes are order-independent.
func Validate(claude, local *extraction.Record, tolerance float64) *Report {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	issues := []Issue{}
	issues = append(issues, checkIdentity(claude, local)...)
	issues = append(issues, checkOverall(claude, local, tolerance)...)
	issues = append(issues, checkNetCalculation(claude)...)
	issues = append(issues, checkSubjects(claude, local, tolerance)...)
	issues = append(issues, checkBooklet(claude, local)...)

	r := &Report{Issues: issues, TotalIssues: len(issues)}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			r.ErrorCount++
		case SeverityWarning:
			r.WarningCount++
		default:
			r.InfoCount++
		}
	}

	switch {
	case r.ErrorCount > 0:
		r.Status = StatusFailed
		r.Summary = fmt.Sprintf("Validation completed with %d critical error(s), %d warning(s). Review issues for details.",
			r.ErrorCount, r.WarningCount)
	case r.WarningCount > 0:
		r.Status = StatusWarning
		r.Summary = fmt.Sprintf("Validation completed with %d warning(s). Review issues for details.", r.WarningCount)
	default:
		r.Status = StatusPassed
		r.Summary = "Validation passed. Claude output matches local parsing."
	}
	return r
}

// checkIdentity fuzzy-matches the student fields. Identity disagreements
// never make a report fail: a name mismatch is a warning, while school,
// grade and section are informational since truncated or re-ordered school
// names are routine on these reports.
func checkIdentity(claude, local *extraction.Record) []Issue {
	var issues []Issue

	cName, lName := claude.StudentInfo.Name, local.StudentInfo.Name
	if cName != "" && lName != "" && Similarity(cName, lName) < nameSimilarityThreshold {
		issues = append(issues, Issue{
			Field:       "student.name",
			Severity:    SeverityWarning,
			ClaudeValue: cName,
			LocalValue:  lName,
			Message:     "Student names differ between sources",
		})
	}

	cSchool, lSchool := claude.StudentInfo.School, local.StudentInfo.School
	if cSchool != "" && lSchool != "" && Similarity(cSchool, lSchool) < schoolSimilarityThreshold {
		issues = append(issues, Issue{
			Field:       "student.school",
			Severity:    SeverityInfo,
			ClaudeValue: cSchool,
			LocalValue:  lSchool,
			Message:     "School names differ between sources",
		})
	}

	issues = append(issues, checkExactText("student.grade", SeverityInfo,
		claude.StudentInfo.Grade, local.StudentInfo.Grade, "Grades differ between sources")...)
	issues = append(issues, checkExactText("student.class_section", SeverityInfo,
		claude.StudentInfo.ClassSection, local.StudentInfo.ClassSection, "Class sections differ between sources")...)
	return issues
}

// overallFields pairs each overall field with its severity on mismatch.
// Question counts are hard facts of the exam, so a disagreement there means
// at least one extraction misread the document. Ranks and averages are
// informational only; they never gate confirmation.
var overallFields = []struct {
	name     string
	severity string
	get      func(o *extraction.OverallScores) *float64
}{
	{"total_questions", SeverityError, func(o *extraction.OverallScores) *float64 { return o.TotalQuestions }},
	{"total_correct", SeverityError, func(o *extraction.OverallScores) *float64 { return o.TotalCorrect }},
	{"total_wrong", SeverityWarning, func(o *extraction.OverallScores) *float64 { return o.TotalWrong }},
	{"total_blank", SeverityWarning, func(o *extraction.OverallScores) *float64 { return o.TotalBlank }},
	{"net_score", SeverityWarning, func(o *extraction.OverallScores) *float64 { return o.NetScore }},
	{"net_percentage", SeverityInfo, func(o *extraction.OverallScores) *float64 { return o.NetPercentage }},
	{"class_rank", SeverityInfo, func(o *extraction.OverallScores) *float64 { return o.ClassRank }},
	{"school_rank", SeverityInfo, func(o *extraction.OverallScores) *float64 { return o.SchoolRank }},
	{"class_avg", SeverityInfo, func(o *extraction.OverallScores) *float64 { return o.ClassAvg }},
	{"school_avg", SeverityInfo, func(o *extraction.OverallScores) *float64 { return o.SchoolAvg }},
}

func checkOverall(claude, local *extraction.Record, tolerance float64) []Issue {
	var issues []Issue
	for _, f := range overallFields {
		cv, lv := f.get(&claude.Overall), f.get(&local.Overall)
		if cv == nil || lv == nil {
			continue
		}
		if !NumericMatch(*cv, *lv, tolerance) {
			issues = append(issues, Issue{
				Field:       "overall." + f.name,
				Severity:    f.severity,
				ClaudeValue: *cv,
				LocalValue:  *lv,
				Message:     fmt.Sprintf("Overall %s differs between sources", f.name),
			})
		}
	}
	return issues
}

// checkNetCalculation verifies the net score Claude reports against the net
// implied by its own correct and wrong counts (net = correct - wrong/4).
// A failure here means the extraction is internally inconsistent, which is
// always treated as an error.
func checkNetCalculation(claude *extraction.Record) []Issue {
	o := &claude.Overall
	if o.NetScore == nil || o.TotalCorrect == nil || o.TotalWrong == nil {
		return nil
	}
	expected := *o.TotalCorrect - *o.TotalWrong/4
	if NumericMatch(*o.NetScore, expected, NetCheckTolerance) {
		return nil
	}
	return []Issue{{
		Field:       "overall.net_calculation",
		Severity:    SeverityError,
		ClaudeValue: *o.NetScore,
		LocalValue:  expected,
		Message:     fmt.Sprintf("Reported net score %.2f does not match calculated net %.2f (correct - wrong/4)", *o.NetScore, expected),
	}}
}

var subjectFields = []struct {
	name     string
	severity string
	get      func(s *extraction.SubjectScore) *float64
}{
	{"total_questions", SeverityWarning, func(s *extraction.SubjectScore) *float64 { return s.TotalQuestions }},
	{"correct", SeverityWarning, func(s *extraction.SubjectScore) *float64 { return s.Correct }},
	{"wrong", SeverityWarning, func(s *extraction.SubjectScore) *float64 { return s.Wrong }},
	{"blank", SeverityWarning, func(s *extraction.SubjectScore) *float64 { return s.Blank }},
	{"net_score", SeverityWarning, func(s *extraction.SubjectScore) *float64 { return s.NetScore }},
	{"net_percentage", SeverityInfo, func(s *extraction.SubjectScore) *float64 { return s.NetPercentage }},
}

// checkSubjects compares subject scores present in both sources. A subject
// that only one source extracted is not an issue: layouts differ in which
// sections they print, and the confirmed source decides what gets stored.
func checkSubjects(claude, local *extraction.Record, tolerance float64) []Issue {
	var issues []Issue
	for cName, cScore := range claude.Subjects {
		lScore, ok := findSubject(local.Subjects, cName)
		if !ok {
			continue
		}
		canonical := utils.NormalizeSubjectName(cName)
		for _, f := range subjectFields {
			cv, lv := f.get(&cScore), f.get(&lScore)
			if cv == nil || lv == nil {
				continue
			}
			if !NumericMatch(*cv, *lv, tolerance) {
				issues = append(issues, Issue{
					Field:       fmt.Sprintf("subject.%s.%s", canonical, f.name),
					Severity:    f.severity,
					ClaudeValue: *cv,
					LocalValue:  *lv,
					Message:     fmt.Sprintf("%s %s differs between sources", canonical, f.name),
				})
			}
		}
	}
	return issues
}

func findSubject(subjects map[string]extraction.SubjectScore, name string) (extraction.SubjectScore, bool) {
	for k, v := range subjects {
		if utils.SubjectsMatch(k, name) {
			return v, true
		}
	}
	return extraction.SubjectScore{}, false
}

func checkBooklet(claude, local *extraction.Record) []Issue {
	return checkExactText("exam.booklet_type", SeverityWarning,
		claude.ExamInfo.BookletType, local.ExamInfo.BookletType, "Booklet types differ between sources")
}

func checkExactText(field, severity, cv, lv, msg string) []Issue {
	if cv == "" || lv == "" {
		return nil
	}
	if normalizeText(cv) == normalizeText(lv) {
		return nil
	}
	return []Issue{{
		Field:       field,
		Severity:    severity,
		ClaudeValue: cv,
		LocalValue:  lv,
		Message:     msg,
	}}
}

// NumericMatch reports whether two values agree within the relative
// tolerance. Near-zero values are compared absolutely.
func NumericMatch(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	avg := (math.Abs(a) + math.Abs(b)) / 2
	if avg < zeroThreshold {
		return math.Abs(a-b) < zeroThreshold
	}
	return math.Abs(a-b)/avg <= tolerance
}

// Similarity returns a 0..1 ratio of how alike two strings are, ignoring
// case and whitespace differences. A string contained in the other counts
// as a full match, which keeps truncated school names from raising issues.
// Otherwise the score is the better of the shared-character ratio (robust
// to re-ordered name parts) and the Levenshtein ratio (robust to single
// OCR misreads).
func Similarity(a, b string) float64 {
	a, b = normalizeText(a), normalizeText(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1.0
	}
	shared := sharedCharRatio(a, b)
	edit := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return math.Max(shared, edit)
}

// sharedCharRatio counts characters common to both strings, with
// multiplicity, over the length of the longer one.
func sharedCharRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0.0
	}
	counts := make(map[rune]int, len(ra))
	for _, r := range ra {
		counts[r]++
	}
	shared := 0
	for _, r := range rb {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}
	return float64(shared) / float64(longest)
}

// normalizeText lowercases with Turkish casing rules, so dotted and
// dotless I fold correctly, and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, strings.Join(strings.Fields(s), " "))
}
