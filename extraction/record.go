// --- deneme-server/extraction/record.go ---

// Package extraction turns an uploaded exam report PDF into a structured
// Record, either through the Claude API or through a local regex parser.
// The two outputs are reconciled by the validation package before anything
// reaches the database.
package extraction

// Record is the structured form of one student's exam report. Both the
// Claude extractor and the local parser produce this shape so the two can
// be compared field by field.
type Record struct {
	StudentInfo      StudentInfo             `json:"student_info"`
	ExamInfo         ExamInfo                `json:"exam_info"`
	Overall          OverallScores           `json:"overall"`
	Subjects         map[string]SubjectScore `json:"subjects"`
	LearningOutcomes []OutcomeEntry          `json:"learning_outcomes,omitempty"`
	Questions        []QuestionEntry         `json:"questions,omitempty"`
}

type StudentInfo struct {
	Name         string `json:"name"`
	School       string `json:"school,omitempty"`
	Grade        string `json:"grade,omitempty"`
	ClassSection string `json:"class_section,omitempty"`
}

type ExamInfo struct {
	ExamName    string `json:"exam_name,omitempty"`
	ExamDate    string `json:"exam_date,omitempty"`
	BookletType string `json:"booklet_type,omitempty"`
	ExamNumber  *int   `json:"exam_number,omitempty"`
}

// OverallScores holds exam-wide totals. Pointers distinguish "absent from
// the report" from a genuine zero.
type OverallScores struct {
	TotalQuestions *float64 `json:"total_questions,omitempty"`
	TotalCorrect   *float64 `json:"total_correct,omitempty"`
	TotalWrong     *float64 `json:"total_wrong,omitempty"`
	TotalBlank     *float64 `json:"total_blank,omitempty"`
	NetScore       *float64 `json:"net_score,omitempty"`
	NetPercentage  *float64 `json:"net_percentage,omitempty"`
	ClassRank      *float64 `json:"class_rank,omitempty"`
	ClassTotal     *float64 `json:"class_total,omitempty"`
	SchoolRank     *float64 `json:"school_rank,omitempty"`
	SchoolTotal    *float64 `json:"school_total,omitempty"`
	ClassAvg       *float64 `json:"class_avg,omitempty"`
	SchoolAvg      *float64 `json:"school_avg,omitempty"`
}

type SubjectScore struct {
	TotalQuestions *float64 `json:"total_questions,omitempty"`
	Correct        *float64 `json:"correct,omitempty"`
	Wrong          *float64 `json:"wrong,omitempty"`
	Blank          *float64 `json:"blank,omitempty"`
	NetScore       *float64 `json:"net_score,omitempty"`
	NetPercentage  *float64 `json:"net_percentage,omitempty"`
	ClassAvg       *float64 `json:"class_avg,omitempty"`
	SchoolAvg      *float64 `json:"school_avg,omitempty"`
}

type OutcomeEntry struct {
	SubjectName        string   `json:"subject_name"`
	Category           string   `json:"category,omitempty"`
	Subcategory        string   `json:"subcategory,omitempty"`
	OutcomeDescription string   `json:"outcome_description,omitempty"`
	TotalQuestions     int      `json:"total_questions"`
	Acquired           int      `json:"acquired"`
	Lost               int      `json:"lost"`
	SuccessRate        *float64 `json:"success_rate,omitempty"`
}

// QuestionEntry is one row of the per-question answer grid. Not every
// report format prints the grid, so the slice is often empty.
type QuestionEntry struct {
	SubjectName    string `json:"subject_name"`
	QuestionNumber int    `json:"question_number"`
	CorrectAnswer  string `json:"correct_answer,omitempty"`
	StudentAnswer  string `json:"student_answer,omitempty"`
	IsCorrect      bool   `json:"is_correct"`
	IsBlank        bool   `json:"is_blank"`
	IsCanceled     bool   `json:"is_canceled"`
}

func fptr(f float64) *float64 { return &f }
