package models

import "time"

// Response is one administered (item, outcome) event. Responses are
// immutable once recorded; the engine never edits or deletes them.
type Response struct {
	ID               int64     `json:"id"`
	AssessmentID     int64     `json:"assessment_id"`
	ItemID           int64     `json:"item_id"`
	Position         int       `json:"position"`
	IsCorrect        bool      `json:"is_correct"`
	SelectedChoiceID *string   `json:"selected_choice_id,omitempty"`
	AbilityAtTime    *float64  `json:"ability_at_time,omitempty"`
	TimeSpentSeconds *float64  `json:"time_spent_seconds,omitempty"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// AbilityEstimate is the current latent-ability estimate and its
// uncertainty. Recomputed fresh from the response history on each turn;
// holds no persistent identity.
type AbilityEstimate struct {
	Theta         float64 `json:"theta"`
	StandardError float64 `json:"standard_error"`
}

type TerminationReason string

const (
	ReasonMaxQuestionsReached TerminationReason = "max_questions_reached"
	ReasonSufficientPrecision TerminationReason = "sufficient_precision"
)

type TerminationDecision struct {
	ShouldTerminate bool                `json:"should_terminate"`
	Reasons         []TerminationReason `json:"reasons"`
	NumQuestions    int                 `json:"num_questions"`
	Ability         AbilityEstimate     `json:"ability_estimate"`
}

type SelectionStrategy string

const (
	StrategyMaximumInformation SelectionStrategy = "maximum_information"
	StrategyClosestDifficulty  SelectionStrategy = "closest_difficulty"
	StrategyRandom             SelectionStrategy = "random"
)

// TerminationCriteria configures the stopping rules. ConfidenceThreshold
// is carried as configuration but not consumed by either criterion;
// reserved pending a confidence-interval-width rule.
type TerminationCriteria struct {
	MaxQuestions           int     `json:"max_questions"`
	MinQuestions           int     `json:"min_questions"`
	StandardErrorThreshold float64 `json:"standard_error_threshold"`
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
}

// CalibrationResponse is one ability-tagged outcome used to recalibrate an
// item's discrimination and difficulty.
type CalibrationResponse struct {
	IsCorrect   bool    `json:"is_correct"`
	UserAbility float64 `json:"user_ability"`
}

// ── Assessment Sessions ───────────────────────────────────

type AssessmentStatus string

const (
	StatusInProgress AssessmentStatus = "in_progress"
	StatusCompleted  AssessmentStatus = "completed"
	StatusAbandoned  AssessmentStatus = "abandoned"
)

type CompletionReason string

const (
	CompletionTerminated    CompletionReason = "terminated"
	CompletionPoolExhausted CompletionReason = "pool_exhausted"
	CompletionAbandoned     CompletionReason = "abandoned"
)

type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// GradeFor maps a 0-100 percentage to a letter grade.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeAPlus
	case percentage >= 80:
		return GradeA
	case percentage >= 75:
		return GradeBPlus
	case percentage >= 70:
		return GradeB
	case percentage >= 65:
		return GradeCPlus
	case percentage >= 60:
		return GradeC
	case percentage >= 50:
		return GradeD
	default:
		return GradeF
	}
}

type Assessment struct {
	ID               int64               `json:"id"`
	UserID           int64               `json:"user_id"`
	Title            string              `json:"title"`
	Subject          string              `json:"subject"`
	Status           AssessmentStatus    `json:"status"`
	Strategy         SelectionStrategy   `json:"strategy"`
	Criteria         TerminationCriteria `json:"criteria"`
	Theta            float64             `json:"theta"`
	StandardError    float64             `json:"standard_error"`
	QuestionsAsked   int                 `json:"questions_asked"`
	CorrectAnswers   int                 `json:"correct_answers"`
	CompletionReason *CompletionReason   `json:"completion_reason,omitempty"`
	StartedAt        time.Time           `json:"started_at"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}

type AssessmentResults struct {
	TotalQuestions int             `json:"total_questions"`
	CorrectAnswers int             `json:"correct_answers"`
	Percentage     float64         `json:"percentage"`
	Grade          Grade           `json:"grade"`
	Passed         bool            `json:"passed"`
	Ability        AbilityEstimate `json:"ability_estimate"`
	AbilityHistory []AbilityPoint  `json:"ability_history"`
}

// AbilityPoint is one entry in the per-session ability trace.
type AbilityPoint struct {
	Position   int       `json:"position"`
	Theta      float64   `json:"theta"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ── Request/Response Types ────────────────────────────────

type StartAssessmentRequest struct {
	Title    string               `json:"title"`
	Subject  string               `json:"subject"`
	Strategy SelectionStrategy    `json:"strategy,omitempty"`
	Criteria *TerminationCriteria `json:"criteria,omitempty"`
}

type StartAssessmentResponse struct {
	Assessment Assessment `json:"assessment"`
	FirstItem  *ServeItem `json:"first_item,omitempty"`
	// PoolEmpty is set when no active item exists for the subject; the
	// session is not created in that case.
	PoolEmpty bool `json:"pool_empty,omitempty"`
}

type SubmitAnswerRequest struct {
	ItemID           int64    `json:"item_id"`
	SelectedChoiceID string   `json:"selected_choice_id"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds,omitempty"`
}

type SubmitAnswerResponse struct {
	Correct         bool                `json:"correct"`
	CorrectChoiceID string              `json:"correct_choice_id"`
	Explanation     string              `json:"explanation,omitempty"`
	Ability         AbilityEstimate     `json:"ability_estimate"`
	Termination     TerminationDecision `json:"termination"`
	NextItem        *ServeItem          `json:"next_item,omitempty"`
	// PoolExhausted signals that selection found no remaining item even
	// though the stopping rules had not fired. Explicit by design: callers
	// must be able to tell an exhausted pool from a normal stop.
	PoolExhausted bool `json:"pool_exhausted,omitempty"`
}

type AssessmentListResponse struct {
	Assessments []Assessment `json:"assessments"`
	Incomplete  []Assessment `json:"incomplete_assessments"`
}

// ServeItem is an item stripped for administration: no correct-answer
// flags, no explanation.
type ServeItem struct {
	ID              int64         `json:"id"`
	Subject         string        `json:"subject"`
	Topic           string        `json:"topic"`
	QuestionText    string        `json:"question_text"`
	Difficulty      Difficulty    `json:"difficulty"`
	DifficultyScore float64       `json:"difficulty_score"`
	Choices         []ServeChoice `json:"choices"`
}

type ServeChoice struct {
	ChoiceID   string `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
}

// ToServeItem strips answer keys for serving.
func (i *Item) ToServeItem() *ServeItem {
	serve := &ServeItem{
		ID:              i.ID,
		Subject:         i.Subject,
		Topic:           i.Topic,
		QuestionText:    i.QuestionText,
		Difficulty:      i.Difficulty,
		DifficultyScore: i.DifficultyScore,
	}
	for _, c := range i.Choices {
		serve.Choices = append(serve.Choices, ServeChoice{ChoiceID: c.ChoiceID, ChoiceText: c.ChoiceText})
	}
	return serve
}
