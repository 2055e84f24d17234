package app

import (
	"context"
	"errors"
	"math"
	"time"

	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/logging"
)

const (
	// DefaultQuizCap bounds the quiz size served to a user.
	DefaultQuizCap = 10
	// PassThreshold is the fixed passing score.
	PassThreshold = 60
	// DailyAttemptCap is the per-ledger attempt limit within one calendar day.
	DailyAttemptCap = 3

	// saveRetries bounds the optimistic-concurrency retry loop on ledger
	// appends before surfacing ErrConcurrencyConflict.
	saveRetries = 5
)

// Submission is one quiz-attempt submission.
type Submission struct {
	UserID          string
	LocationID      string
	SectionID       string
	Answers         []domain.Answer
	DurationSeconds int
}

// AttemptResult reports the outcome of a recorded attempt.
type AttemptResult struct {
	Score            int  `json:"score"`
	Passed           bool `json:"isPassed"`
	CorrectAnswers   int  `json:"correctAnswers"`
	TotalQuestions   int  `json:"totalQuestions"`
	AttemptNumber    int  `json:"attemptNumber"`
	SectionCompleted bool `json:"sectionCompleted"`
}

// AssessmentService serves quizzes and records graded attempts.
type AssessmentService struct {
	resolver  *Resolver
	locations LocationRepository
	questions QuestionRepository
	answers   AnswerSource
	ledgers   LedgerRepository
	log       *logging.Logger
	quizCap   int
	clock     func() time.Time
}

func NewAssessmentService(resolver *Resolver, locations LocationRepository, questions QuestionRepository, answers AnswerSource, ledgers LedgerRepository, log *logging.Logger) *AssessmentService {
	return &AssessmentService{
		resolver:  resolver,
		locations: locations,
		questions: questions,
		answers:   answers,
		ledgers:   ledgers,
		log:       log,
		quizCap:   DefaultQuizCap,
		clock:     time.Now,
	}
}

// WithQuizCap overrides the quiz size bound.
func (s *AssessmentService) WithQuizCap(cap int) *AssessmentService {
	if cap > 0 {
		s.quizCap = cap
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.clock = now
	return s
}

// GetQuiz resolves the scope for the user's position and returns its
// bounded question set. When the resolved admin scope has no questions, one
// retry runs against the default scope before ErrNoQuestionsAvailable.
// Users who already passed the assessment for the resolved scope are
// rejected with ErrAlreadyPassed.
func (s *AssessmentService) GetQuiz(ctx context.Context, userID string, position domain.Coordinate, sectionID string) (domain.Quiz, error) {
	scope, err := s.resolver.Resolve(ctx, position)
	if err != nil {
		return domain.Quiz{}, err
	}

	key := domain.LedgerKey{UserID: userID, LocationID: scope.LocationID, SectionID: sectionID}
	if ledger, found, err := s.ledgers.Load(ctx, key); err != nil {
		return domain.Quiz{}, err
	} else if found && ledger.State.Passed() {
		return domain.Quiz{}, domain.ErrAlreadyPassed
	}

	questions, err := s.questions.Questions(ctx, scope.LocationID, sectionID)
	if err != nil {
		return domain.Quiz{}, err
	}

	if len(questions) == 0 && !scope.Default {
		fallback, err := s.locations.DefaultScope(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotConfigured) {
				return domain.Quiz{}, domain.ErrNoQuestionsAvailable
			}
			return domain.Quiz{}, err
		}
		scope = domain.Scope{LocationID: fallback.ID, Default: true}
		questions, err = s.questions.Questions(ctx, scope.LocationID, sectionID)
		if err != nil {
			return domain.Quiz{}, err
		}
	}
	if len(questions) == 0 {
		return domain.Quiz{}, domain.ErrNoQuestionsAvailable
	}

	if len(questions) > s.quizCap {
		questions = questions[:s.quizCap]
	}
	return domain.Quiz{
		LocationID: scope.LocationID,
		SectionID:  sectionID,
		Default:    scope.Default,
		Questions:  questions,
	}, nil
}

// SubmitAttempt grades a submission and appends it to the ledger for its
// key. The daily cap is enforced before anything is written; the append is
// an optimistic-concurrency loop so two racing submissions can never both
// slip under the cap.
func (s *AssessmentService) SubmitAttempt(ctx context.Context, sub Submission) (AttemptResult, error) {
	var messages []string
	if sub.UserID == "" {
		messages = append(messages, "userId is required")
	}
	if sub.LocationID == "" {
		messages = append(messages, "locationId is required")
	}
	if len(sub.Answers) == 0 {
		messages = append(messages, "answers are required")
	}
	if len(messages) > 0 {
		return AttemptResult{}, domain.NewValidationError(messages...)
	}

	correct, err := s.answers.CorrectOptions(ctx, sub.LocationID, sub.SectionID)
	if err != nil {
		return AttemptResult{}, err
	}

	graded := make([]domain.GradedAnswer, 0, len(sub.Answers))
	correctCount := 0
	for _, a := range sub.Answers {
		// Unknown question IDs grade as incorrect rather than failing the
		// whole submission.
		want := correct[a.QuestionID]
		isCorrect := want != "" && want == a.SelectedOption
		if isCorrect {
			correctCount++
		}
		graded = append(graded, domain.GradedAnswer{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			CorrectOption:  want,
			Correct:        isCorrect,
		})
	}

	// Score divides by the submitted count, not the full quiz size; partial
	// submissions are allowed.
	total := len(sub.Answers)
	score := int(math.Round(float64(correctCount) * 100 / float64(total)))
	passed := score >= PassThreshold

	key := domain.LedgerKey{UserID: sub.UserID, LocationID: sub.LocationID, SectionID: sub.SectionID}
	for i := 0; i < saveRetries; i++ {
		ledger, found, err := s.ledgers.Load(ctx, key)
		if err != nil {
			return AttemptResult{}, err
		}
		if !found {
			ledger = domain.AttemptLedger{Key: key, State: domain.StateNotStarted}
		}

		now := s.clock()
		if ledger.AttemptsOn(now) >= DailyAttemptCap {
			return AttemptResult{}, domain.ErrAttemptLimitExceeded
		}

		attempt := domain.Attempt{
			Number:          len(ledger.Attempts) + 1,
			Answers:         graded,
			DurationSeconds: sub.DurationSeconds,
			Score:           score,
			CorrectAnswers:  correctCount,
			TotalQuestions:  total,
			Passed:          passed,
			SubmittedAt:     now,
		}
		ledger.Record(attempt, now)

		err = s.ledgers.Save(ctx, &ledger)
		if err == nil {
			s.log.Info("attempt recorded",
				"userId", sub.UserID,
				"locationId", sub.LocationID,
				"attemptNumber", attempt.Number,
				"score", score,
				"passed", passed,
			)
			return AttemptResult{
				Score:            score,
				Passed:           passed,
				CorrectAnswers:   correctCount,
				TotalQuestions:   total,
				AttemptNumber:    attempt.Number,
				SectionCompleted: ledger.State.Passed(),
			}, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return AttemptResult{}, err
		}
	}
	return AttemptResult{}, domain.ErrConcurrencyConflict
}
