package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deneme-server/extraction"
)

func f(v float64) *float64 { return &v }

// baseRecord builds an internally consistent record both sources could have
// produced from the same document.
func baseRecord() *extraction.Record {
	return &extraction.Record{
		StudentInfo: extraction.StudentInfo{
			Name:   "Ayşe Yılmaz",
			School: "Atatürk Anadolu Lisesi",
			Grade:  "11",
		},
		ExamInfo: extraction.ExamInfo{BookletType: "B"},
		Overall: extraction.OverallScores{
			TotalQuestions: f(120),
			TotalCorrect:   f(80),
			TotalWrong:     f(24),
			TotalBlank:     f(16),
			NetScore:       f(74),
			NetPercentage:  f(61.67),
		},
		Subjects: map[string]extraction.SubjectScore{
			"Matematik": {TotalQuestions: f(40), Correct: f(25), Wrong: f(10), Blank: f(5), NetScore: f(22.5)},
			"Türkçe":    {TotalQuestions: f(40), Correct: f(30), Wrong: f(6), Blank: f(4), NetScore: f(28.5)},
		},
	}
}

func findIssue(report *Report, field string) (Issue, bool) {
	for _, i := range report.Issues {
		if i.Field == field {
			return i, true
		}
	}
	return Issue{}, false
}

func TestValidateIdenticalRecordsPass(t *testing.T) {
	report := Validate(baseRecord(), baseRecord(), DefaultTolerance)

	assert.Equal(t, StatusPassed, report.Status)
	assert.Empty(t, report.Issues)
	assert.Zero(t, report.TotalIssues)
	assert.Equal(t, "Validation passed. Claude output matches local parsing.", report.Summary)
}

func TestValidateTotalQuestionsMismatchFails(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	local.Overall.TotalQuestions = f(135)

	report := Validate(claude, local, DefaultTolerance)

	assert.Equal(t, StatusFailed, report.Status)
	require.GreaterOrEqual(t, report.ErrorCount, 1)

	issue, found := findIssue(report, "overall.total_questions")
	require.True(t, found, "expected an issue on overall.total_questions")
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Contains(t, report.Summary, "critical error(s)")
}

func TestValidateMinorNetDifferenceWithinTolerance(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	// 74 vs 74.5 is a relative difference of about 0.7%, well inside tolerance.
	local.Overall.NetScore = f(74.5)

	report := Validate(claude, local, DefaultTolerance)
	assert.Equal(t, StatusPassed, report.Status)
}

func TestValidateNetCalculationInconsistencyFails(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	// Claude claims a net that its own counts cannot produce: 80 - 24/4 = 74.
	claude.Overall.NetScore = f(90)
	local.Overall.NetScore = f(90)

	report := Validate(claude, local, DefaultTolerance)

	assert.Equal(t, StatusFailed, report.Status)
	issue, found := findIssue(report, "overall.net_calculation")
	require.True(t, found, "expected an issue on overall.net_calculation")
	assert.Equal(t, SeverityError, issue.Severity)
}

func TestValidateNameMismatchWarns(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	local.StudentInfo.Name = "Mehmet Kaya"

	report := Validate(claude, local, DefaultTolerance)

	assert.Equal(t, StatusWarning, report.Status)
	assert.Zero(t, report.ErrorCount)
	issue, found := findIssue(report, "student.name")
	require.True(t, found)
	assert.Equal(t, SeverityWarning, issue.Severity)
}

func TestValidateSchoolMismatchIsInformational(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	local.StudentInfo.School = "Özel Bilim Koleji"

	report := Validate(claude, local, DefaultTolerance)

	// A school disagreement is advisory: the status stays passed.
	assert.Equal(t, StatusPassed, report.Status)
	assert.Equal(t, 1, report.InfoCount)
	assert.Equal(t, 1, report.TotalIssues)
	issue, found := findIssue(report, "student.school")
	require.True(t, found)
	assert.Equal(t, SeverityInfo, issue.Severity)
}

func TestValidateTruncatedSchoolIsNotAnIssue(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	// The local parser often captures only the leading part of the name.
	local.StudentInfo.School = "Atatürk Anadolu"

	report := Validate(claude, local, DefaultTolerance)
	assert.Equal(t, StatusPassed, report.Status)
	assert.Empty(t, report.Issues)
}

func TestValidateRankDisagreementDoesNotGate(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	claude.Overall.ClassRank = f(5)
	local.Overall.ClassRank = f(40)

	report := Validate(claude, local, DefaultTolerance)

	assert.Equal(t, StatusPassed, report.Status)
	issue, found := findIssue(report, "overall.class_rank")
	require.True(t, found)
	assert.Equal(t, SeverityInfo, issue.Severity)
}

func TestValidateSubjectOnlyInOneSourceIsNotAnIssue(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	claude.Subjects["Fizik"] = extraction.SubjectScore{TotalQuestions: f(14), Correct: f(8), Wrong: f(4), Blank: f(2)}

	report := Validate(claude, local, DefaultTolerance)
	assert.Equal(t, StatusPassed, report.Status)
}

func TestValidateSubjectAliasesAreMatched(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	// Same subject under an alias, with a clearly different correct count.
	delete(local.Subjects, "Türkçe")
	local.Subjects["EDEBİYAT"] = extraction.SubjectScore{TotalQuestions: f(40), Correct: f(20), Wrong: f(6), Blank: f(4), NetScore: f(28.5)}

	report := Validate(claude, local, DefaultTolerance)

	assert.Equal(t, StatusWarning, report.Status)
	_, found := findIssue(report, "subject.Türkçe.correct")
	assert.True(t, found, "aliased subject should still be compared, issues: %+v", report.Issues)
}

func TestValidateBookletCaseAndWhitespaceInsensitive(t *testing.T) {
	claude := baseRecord()
	local := baseRecord()
	claude.ExamInfo.BookletType = " b "
	local.ExamInfo.BookletType = "B"

	report := Validate(claude, local, DefaultTolerance)
	assert.Equal(t, StatusPassed, report.Status)

	local.ExamInfo.BookletType = "A"
	report = Validate(claude, local, DefaultTolerance)
	assert.Equal(t, StatusWarning, report.Status)
}

func TestNumericMatchProperties(t *testing.T) {
	// Reflexivity.
	for _, v := range []float64{0, 0.005, 1, 74.5, -3.2, 1e6} {
		assert.True(t, NumericMatch(v, v, DefaultTolerance), "value %v should match itself", v)
	}

	// Symmetry.
	pairs := [][2]float64{{74, 74.5}, {0, 0.005}, {10, 12}, {0.004, 0.009}, {100, 104}}
	for _, p := range pairs {
		assert.Equal(t,
			NumericMatch(p[0], p[1], DefaultTolerance),
			NumericMatch(p[1], p[0], DefaultTolerance),
			"match of %v and %v should be symmetric", p[0], p[1])
	}

	// Near-zero values are compared absolutely.
	assert.True(t, NumericMatch(0, 0.005, DefaultTolerance))
	assert.False(t, NumericMatch(0, 0.02, DefaultTolerance))

	// Relative tolerance elsewhere.
	assert.True(t, NumericMatch(100, 104, DefaultTolerance))
	assert.False(t, NumericMatch(100, 115, DefaultTolerance))
	assert.False(t, NumericMatch(100, 110, NetCheckTolerance))
}

func TestSimilarity(t *testing.T) {
	// Turkish case folding: dotless I must survive the round trip.
	assert.Equal(t, 1.0, Similarity("Ayşe Yılmaz", "AYŞE  YILMAZ"))
	assert.Equal(t, 1.0, Similarity("YILMAZ", "yılmaz"))

	// Containment counts as a full match.
	assert.Equal(t, 1.0, Similarity("Ankara Atatürk Anadolu Lisesi", "Ankara Atatürk"))

	// Re-ordered name parts share every character.
	assert.Equal(t, 1.0, Similarity("Ali Veli", "Veli Ali"))

	assert.Greater(t, Similarity("Ayşe Yılmaz", "Ayse Yılmaz"), 0.8)
	assert.Less(t, Similarity("Ayşe Yılmaz", "Mehmet Kaya"), 0.8)
	assert.Equal(t, 0.0, Similarity("", "Ayşe"))
}
