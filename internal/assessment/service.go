// Package assessment drives adaptive test sessions: starting a session,
// grading answers, re-estimating ability after each response, and deciding
// when to stop.
package assessment

import (
	"errors"
	"fmt"
	"log"

	"github.com/adaptive-assessment/backend/internal/adaptive"
	"github.com/adaptive-assessment/backend/internal/items"
	"github.com/adaptive-assessment/backend/internal/models"
)

var (
	ErrNotFound        = errors.New("assessment not found")
	ErrForbidden       = errors.New("assessment belongs to another user")
	ErrNotInProgress   = errors.New("assessment is not in progress")
	ErrEmptyPool       = errors.New("no active items for subject")
	ErrAlreadyAnswered = errors.New("item already answered in this session")
	ErrInvalidChoice   = errors.New("selected choice does not exist on item")
)

// passingPercentage is the score needed for a passing result.
const passingPercentage = 60.0

type Service struct {
	store *Store
	items *items.Service
}

func NewService(store *Store, items *items.Service) *Service {
	return &Service{store: store, items: items}
}

// Start creates a new session and selects its first item at the prior
// ability of zero. No session row is written when the subject has no
// active items.
func (s *Service) Start(userID int64, req models.StartAssessmentRequest) (*models.StartAssessmentResponse, error) {
	if req.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = models.StrategyMaximumInformation
	}
	switch strategy {
	case models.StrategyMaximumInformation, models.StrategyClosestDifficulty, models.StrategyRandom:
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", strategy)
	}

	criteria := adaptive.DefaultTerminationCriteria()
	if req.Criteria != nil {
		criteria = *req.Criteria
		if criteria.MaxQuestions <= 0 {
			return nil, fmt.Errorf("max_questions must be positive")
		}
		if criteria.MinQuestions < 0 || criteria.MinQuestions > criteria.MaxQuestions {
			return nil, fmt.Errorf("min_questions must be in [0, max_questions]")
		}
		if criteria.StandardErrorThreshold <= 0 {
			return nil, fmt.Errorf("standard_error_threshold must be positive")
		}
	}

	pool, err := s.items.ActivePool(req.Subject)
	if err != nil {
		return nil, err
	}

	// Select before creating the session row: a pool that cannot serve a
	// first item (empty, or nothing but zero-information items under
	// maximum_information) leaves no session behind.
	first := adaptive.SelectNextItem(0, pool, nil, strategy)
	if first == nil {
		return &models.StartAssessmentResponse{PoolEmpty: true}, nil
	}
	full, err := s.items.GetItem(first.ID)
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = req.Subject + " assessment"
	}

	created, err := s.store.CreateAssessment(&models.Assessment{
		UserID:   userID,
		Title:    title,
		Subject:  req.Subject,
		Strategy: strategy,
		Criteria: criteria,
	})
	if err != nil {
		return nil, err
	}

	return &models.StartAssessmentResponse{
		Assessment: *created,
		FirstItem:  full.ToServeItem(),
	}, nil
}

// Submit grades one answer and advances the session: record the response,
// re-estimate ability from the full history, fold the outcome into the
// item's usage stats, evaluate the stopping rules, and pick the next item.
func (s *Service) Submit(userID, assessmentID int64, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	a, err := s.ownedAssessment(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, ErrNotInProgress
	}

	item, err := s.items.GetItem(req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, req.ItemID)
	}

	var selected, correct *models.ItemChoice
	for idx := range item.Choices {
		c := &item.Choices[idx]
		if c.ChoiceID == req.SelectedChoiceID {
			selected = c
		}
		if c.IsCorrect {
			correct = c
		}
	}
	if selected == nil {
		return nil, ErrInvalidChoice
	}
	if correct == nil {
		return nil, fmt.Errorf("item %d has no correct choice", item.ID)
	}
	isCorrect := selected.IsCorrect

	responses, administered, err := s.store.GetHistory(assessmentID)
	if err != nil {
		return nil, err
	}
	for _, r := range responses {
		if r.ItemID == item.ID {
			return nil, ErrAlreadyAnswered
		}
	}

	// Estimate against the history including this answer, so the stored
	// ability_at_time reflects everything known at that moment.
	newResponse := models.Response{
		AssessmentID:     assessmentID,
		ItemID:           item.ID,
		Position:         len(responses) + 1,
		IsCorrect:        isCorrect,
		SelectedChoiceID: &req.SelectedChoiceID,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	fullResponses := append(responses, newResponse)
	fullItems := append(administered, *item)

	estimate, err := adaptive.EstimateAbility(fullResponses, fullItems)
	if err != nil {
		return nil, fmt.Errorf("estimate ability: %w", err)
	}

	theta := estimate.Theta
	newResponse.AbilityAtTime = &theta
	if err := s.store.AddResponse(&newResponse); err != nil {
		return nil, err
	}

	timeSpent := 0.0
	if req.TimeSpentSeconds != nil {
		timeSpent = *req.TimeSpentSeconds
	}
	// Usage accounting must not fail the answer. A lost write only delays
	// the stats by one administration.
	if err := s.items.RecordUsage(item.ID, isCorrect, timeSpent); err != nil {
		log.Printf("WARN: usage stats not recorded for item %d: %v", item.ID, err)
	}

	asked := a.QuestionsAsked + 1
	correctCount := a.CorrectAnswers
	if isCorrect {
		correctCount++
	}
	if err := s.store.UpdateProgress(assessmentID, estimate, asked, correctCount); err != nil {
		return nil, err
	}

	decision, err := adaptive.EvaluateTermination(fullResponses, fullItems, a.Criteria)
	if err != nil {
		return nil, fmt.Errorf("evaluate termination: %w", err)
	}

	resp := &models.SubmitAnswerResponse{
		Correct:         isCorrect,
		CorrectChoiceID: correct.ChoiceID,
		Explanation:     item.Explanation,
		Ability:         estimate,
		Termination:     decision,
	}

	if decision.ShouldTerminate {
		if err := s.store.CompleteAssessment(assessmentID, models.CompletionTerminated); err != nil {
			return nil, err
		}
		return resp, nil
	}

	pool, err := s.items.ActivePool(a.Subject)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(fullResponses))
	for _, r := range fullResponses {
		seen[r.ItemID] = true
	}

	next := adaptive.SelectNextItem(estimate.Theta, pool, seen, a.Strategy)
	if next == nil {
		resp.PoolExhausted = true
		if err := s.store.CompleteAssessment(assessmentID, models.CompletionPoolExhausted); err != nil {
			return nil, err
		}
		return resp, nil
	}

	fullNext, err := s.items.GetItem(next.ID)
	if err != nil {
		return nil, err
	}
	resp.NextItem = fullNext.ToServeItem()
	return resp, nil
}

func (s *Service) Get(userID, assessmentID int64) (*models.Assessment, error) {
	return s.ownedAssessment(userID, assessmentID)
}

func (s *Service) List(userID int64) (*models.AssessmentListResponse, error) {
	recent, incomplete, err := s.store.ListAssessments(userID)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []models.Assessment{}
	}
	if incomplete == nil {
		incomplete = []models.Assessment{}
	}
	return &models.AssessmentListResponse{Assessments: recent, Incomplete: incomplete}, nil
}

// Abandon marks an in-progress session as abandoned. Its responses stay on
// record for item calibration.
func (s *Service) Abandon(userID, assessmentID int64) (*models.Assessment, error) {
	a, err := s.ownedAssessment(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, ErrNotInProgress
	}
	if err := s.store.AbandonAssessment(assessmentID); err != nil {
		return nil, err
	}
	return s.store.GetAssessment(assessmentID)
}

// Results summarizes a session: raw score, letter grade, pass/fail against
// the 60% bar, the final ability estimate, and the per-question ability
// trace.
func (s *Service) Results(userID, assessmentID int64) (*models.AssessmentResults, error) {
	a, err := s.ownedAssessment(userID, assessmentID)
	if err != nil {
		return nil, err
	}

	responses, _, err := s.store.GetHistory(assessmentID)
	if err != nil {
		return nil, err
	}

	percentage := 0.0
	if a.QuestionsAsked > 0 {
		percentage = float64(a.CorrectAnswers) / float64(a.QuestionsAsked) * 100
	}

	results := &models.AssessmentResults{
		TotalQuestions: a.QuestionsAsked,
		CorrectAnswers: a.CorrectAnswers,
		Percentage:     percentage,
		Grade:          models.GradeFor(percentage),
		Passed:         percentage >= passingPercentage,
		Ability: models.AbilityEstimate{
			Theta:         a.Theta,
			StandardError: a.StandardError,
		},
		AbilityHistory: []models.AbilityPoint{},
	}
	for _, r := range responses {
		if r.AbilityAtTime == nil {
			continue
		}
		results.AbilityHistory = append(results.AbilityHistory, models.AbilityPoint{
			Position:   r.Position,
			Theta:      *r.AbilityAtTime,
			AnsweredAt: r.AnsweredAt,
		})
	}
	return results, nil
}

func (s *Service) ownedAssessment(userID, assessmentID int64) (*models.Assessment, error) {
	a, err := s.store.GetAssessment(assessmentID)
	if err != nil {
		return nil, ErrNotFound
	}
	if a.UserID != userID {
		return nil, ErrForbidden
	}
	return a, nil
}
