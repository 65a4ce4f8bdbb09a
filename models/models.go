package models

import "time"

// --- Database row models ---

type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	School       *string   `json:"school,omitempty"`
	Grade        *string   `json:"grade,omitempty"`
	ClassSection *string   `json:"class_section,omitempty"`
	Program      *string   `json:"program,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Exam struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	ExamName        string     `json:"exam_name"`
	ExamDate        time.Time  `json:"exam_date"`
	BookletType     *string    `json:"booklet_type,omitempty"`
	ExamNumber      *int       `json:"exam_number,omitempty"`
	PDFPath         *string    `json:"pdf_path,omitempty"`
	Status          string     `json:"status"`
	ConfirmedSource *string    `json:"confirmed_source,omitempty"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
}

type ExamResult struct {
	ID             string   `json:"id"`
	ExamID         string   `json:"exam_id"`
	TotalQuestions int      `json:"total_questions"`
	TotalCorrect   int      `json:"total_correct"`
	TotalWrong     int      `json:"total_wrong"`
	TotalBlank     int      `json:"total_blank"`
	NetScore       float64  `json:"net_score"`
	NetPercentage  float64  `json:"net_percentage"`
	ClassRank      *int     `json:"class_rank,omitempty"`
	ClassTotal     *int     `json:"class_total,omitempty"`
	SchoolRank     *int     `json:"school_rank,omitempty"`
	SchoolTotal    *int     `json:"school_total,omitempty"`
	ClassAvg       *float64 `json:"class_avg,omitempty"`
	SchoolAvg      *float64 `json:"school_avg,omitempty"`
}

type SubjectResult struct {
	ID             string   `json:"id"`
	ExamID         string   `json:"exam_id"`
	SubjectName    string   `json:"subject_name"`
	TotalQuestions int      `json:"total_questions"`
	Correct        int      `json:"correct"`
	Wrong          int      `json:"wrong"`
	Blank          int      `json:"blank"`
	NetScore       float64  `json:"net_score"`
	NetPercentage  float64  `json:"net_percentage"`
	ClassRank      *int     `json:"class_rank,omitempty"`
	ClassAvg       *float64 `json:"class_avg,omitempty"`
	SchoolRank     *int     `json:"school_rank,omitempty"`
	SchoolAvg      *float64 `json:"school_avg,omitempty"`
}

type LearningOutcome struct {
	ID                 string   `json:"id"`
	ExamID             string   `json:"exam_id"`
	SubjectName        string   `json:"subject_name"`
	Category           *string  `json:"category,omitempty"`
	Subcategory        *string  `json:"subcategory,omitempty"`
	OutcomeDescription *string  `json:"outcome_description,omitempty"`
	TotalQuestions     int      `json:"total_questions"`
	Acquired           int      `json:"acquired"`
	Lost               int      `json:"lost"`
	SuccessRate        *float64 `json:"success_rate,omitempty"`
	StudentPercentage  *float64 `json:"student_percentage,omitempty"`
	ClassPercentage    *float64 `json:"class_percentage,omitempty"`
	SchoolPercentage   *float64 `json:"school_percentage,omitempty"`
}

type Question struct {
	ID             string  `json:"id"`
	ExamID         string  `json:"exam_id"`
	SubjectName    string  `json:"subject_name"`
	QuestionNumber int     `json:"question_number"`
	CorrectAnswer  *string `json:"correct_answer,omitempty"`
	StudentAnswer  *string `json:"student_answer,omitempty"`
	IsCorrect      bool    `json:"is_correct"`
	IsBlank        bool    `json:"is_blank"`
	IsCanceled     bool    `json:"is_canceled"`
}

type Recommendation struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Priority    int        `json:"priority"`
	SubjectName *string    `json:"subject_name,omitempty"`
	Topic       *string    `json:"topic,omitempty"`
	IssueType   string     `json:"issue_type"`
	Description string     `json:"description"`
	ActionItems []string   `json:"action_items"`
	Rationale   *string    `json:"rationale,omitempty"`
	ImpactScore *float64   `json:"impact_score,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	Resources   []Resource `json:"resources,omitempty"`
}

type Resource struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	Description  *string   `json:"description,omitempty"`
	SubjectName  *string   `json:"subject_name,omitempty"`
	Topic        *string   `json:"topic,omitempty"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	QualityScore *float64  `json:"quality_score,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type YouTubeChannel struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	ChannelName     string    `json:"channel_name"`
	SubjectName     string    `json:"subject_name"`
	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	ViewCount       int64     `json:"view_count"`
	ThumbnailURL    *string   `json:"thumbnail_url,omitempty"`
	Description     *string   `json:"description,omitempty"`
	CustomURL       *string   `json:"custom_url,omitempty"`
	TrustScore      float64   `json:"trust_score"`
	DiscoveredVia   string    `json:"discovered_via"`
	Notes           *string   `json:"notes,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StudyPlan struct {
	ID             string         `json:"id"`
	StudentID      string         `json:"student_id"`
	Name           string         `json:"name"`
	TimeFrame      int            `json:"time_frame"`
	DailyStudyTime int            `json:"daily_study_time"`
	StudyStyle     string         `json:"study_style"`
	Status         string         `json:"status"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	CreatedAt      time.Time      `json:"created_at"`
	Days           []StudyPlanDay `json:"days,omitempty"`
}

type StudyPlanDay struct {
	ID                   string          `json:"id"`
	PlanID               string          `json:"plan_id"`
	DayNumber            int             `json:"day_number"`
	Date                 time.Time       `json:"date"`
	TotalDurationMinutes int             `json:"total_duration_minutes"`
	Completed            bool            `json:"completed"`
	Items                []StudyPlanItem `json:"items,omitempty"`
}

type StudyPlanItem struct {
	ID               string     `json:"id"`
	DayID            string     `json:"day_id"`
	RecommendationID *string    `json:"recommendation_id,omitempty"`
	SubjectName      string     `json:"subject_name"`
	Topic            string     `json:"topic"`
	Description      *string    `json:"description,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	ItemOrder        int        `json:"item_order"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// --- API request/response DTOs ---

type UploadExamResponse struct {
	ExamID           string      `json:"exam_id"`
	Status           string      `json:"status"`
	ValidationReport interface{} `json:"validation_report"`
	ClaudeData       interface{} `json:"claude_data"`
	LocalData        interface{} `json:"local_data"`
}

type ConfirmExamRequest struct {
	Source string `json:"source" binding:"required,oneof=claude local"`
}

type ExamSummary struct {
	ID               string    `json:"id"`
	ExamName         string    `json:"exam_name"`
	ExamDate         time.Time `json:"exam_date"`
	Status           string    `json:"status"`
	NetScore         *float64  `json:"net_score,omitempty"`
	NetPercentage    *float64  `json:"net_percentage,omitempty"`
	ValidationStatus *string   `json:"validation_status,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

type ExamDetail struct {
	Exam             Exam              `json:"exam"`
	Result           *ExamResult       `json:"result,omitempty"`
	Subjects         []SubjectResult   `json:"subjects,omitempty"`
	Outcomes         []LearningOutcome `json:"outcomes,omitempty"`
	ValidationReport interface{}       `json:"validation_report,omitempty"`
	ClaudeData       interface{}       `json:"claude_data,omitempty"`
	LocalData        interface{}       `json:"local_data,omitempty"`
}

type OverviewStats struct {
	TotalExams       int      `json:"total_exams"`
	AvgNetScore      float64  `json:"avg_net_score"`
	AvgNetPercentage float64  `json:"avg_net_percentage"`
	BestNetScore     float64  `json:"best_net_score"`
	LatestNetScore   *float64 `json:"latest_net_score,omitempty"`
	TotalCorrect     int      `json:"total_correct"`
	TotalWrong       int      `json:"total_wrong"`
	TotalBlank       int      `json:"total_blank"`
	FirstExamDate    *string  `json:"first_exam_date,omitempty"`
	LastExamDate     *string  `json:"last_exam_date,omitempty"`
}

type TrendPoint struct {
	ExamID        string    `json:"exam_id"`
	ExamName      string    `json:"exam_name"`
	ExamDate      time.Time `json:"exam_date"`
	NetScore      float64   `json:"net_score"`
	NetPercentage float64   `json:"net_percentage"`
	ClassAvg      *float64  `json:"class_avg,omitempty"`
	SchoolAvg     *float64  `json:"school_avg,omitempty"`
}

type SubjectPerformance struct {
	SubjectName      string  `json:"subject_name"`
	ExamCount        int     `json:"exam_count"`
	AvgNetScore      float64 `json:"avg_net_score"`
	AvgNetPercentage float64 `json:"avg_net_percentage"`
	AvgCorrect       float64 `json:"avg_correct"`
	AvgWrong         float64 `json:"avg_wrong"`
	AvgBlank         float64 `json:"avg_blank"`
	Trend            string  `json:"trend"`
	TrendDelta       float64 `json:"trend_delta"`
}

type OutcomeAggregate struct {
	SubjectName        string  `json:"subject_name"`
	Category           string  `json:"category"`
	Subcategory        string  `json:"subcategory"`
	OutcomeDescription string  `json:"outcome_description"`
	TotalQuestions     int     `json:"total_questions"`
	Acquired           int     `json:"acquired"`
	Lost               int     `json:"lost"`
	SuccessRate        float64 `json:"success_rate"`
}

type CreateStudentRequest struct {
	Name         string  `json:"name" binding:"required"`
	School       *string `json:"school"`
	Grade        *string `json:"grade"`
	ClassSection *string `json:"class_section"`
	Program      *string `json:"program"`
}

type AddChannelRequest struct {
	ChannelID   string   `json:"channel_id" binding:"required"`
	SubjectName string   `json:"subject_name" binding:"required"`
	TrustScore  *float64 `json:"trust_score"`
	Notes       *string  `json:"notes"`
}

type DiscoverChannelsRequest struct {
	Subjects []string `json:"subjects"`
	PerQuery int      `json:"per_query"`
}

type CurateResourcesRequest struct {
	SubjectName string `json:"subject_name" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
	MaxResults  int    `json:"max_results"`
}

type CreateStudyPlanRequest struct {
	Name           string `json:"name" binding:"required"`
	TimeFrame      int    `json:"time_frame" binding:"required,min=1,max=90"`
	DailyStudyTime int    `json:"daily_study_time" binding:"required,min=15,max=600"`
	StudyStyle     string `json:"study_style" binding:"required,oneof=intensive balanced relaxed"`
}

type StudyPlanProgress struct {
	PlanID            string  `json:"plan_id"`
	TotalItems        int     `json:"total_items"`
	CompletedItems    int     `json:"completed_items"`
	CompletionPercent float64 `json:"completion_percent"`
	ExpectedPercent   float64 `json:"expected_percent"`
	OnTrack           bool    `json:"on_track"`
	DaysElapsed       int     `json:"days_elapsed"`
	DaysTotal         int     `json:"days_total"`
}
