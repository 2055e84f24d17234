package domain

import (
	"fmt"
	"time"
)

// Coordinate is a (longitude, latitude) pair, GeoJSON order.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Location is a training jurisdiction. The default-scope location carries no
// boundary and catches every coordinate that no admin boundary contains.
type Location struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Boundary Polygon `json:"boundary,omitempty"`
	Default  bool    `json:"default"`
}

// Scope is the resolved content scope for a user position.
type Scope struct {
	LocationID string `json:"locationId"`
	Default    bool   `json:"isDefaultScope"`
}

// Option is a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question belonging to one location (and optionally
// one section). Exactly one option is expected to be flagged correct.
type Question struct {
	ID         string   `json:"id"`
	LocationID string   `json:"locationId"`
	SectionID  string   `json:"sectionId,omitempty"`
	Prompt     string   `json:"prompt"`
	Options    []Option `json:"options"`
}

// CorrectOption returns the ID of the first option flagged correct, or ""
// when none is. Questions with zero flagged options can never be answered
// correctly; extra flags beyond the first are ignored.
func (q Question) CorrectOption() string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// Quiz is the bounded question set served to a user for one scope.
type Quiz struct {
	LocationID string     `json:"locationId"`
	SectionID  string     `json:"sectionId,omitempty"`
	Default    bool       `json:"isDefaultScope"`
	Questions  []Question `json:"questions"`
}

// Answer is one submitted (question, selected option) pair.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

// GradedAnswer is an Answer after evaluation against the question bank.
type GradedAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
	CorrectOption  string `json:"correctOption"`
	Correct        bool   `json:"isCorrect"`
}

// Attempt is one immutable entry in an attempt ledger.
type Attempt struct {
	Number          int            `json:"attemptNumber"`
	Answers         []GradedAnswer `json:"questions"`
	DurationSeconds int            `json:"duration"`
	Score           int            `json:"score"`
	CorrectAnswers  int            `json:"correctAnswers"`
	TotalQuestions  int            `json:"totalQuestions"`
	Passed          bool           `json:"isPassed"`
	SubmittedAt     time.Time      `json:"attemptedAt"`
}

// LedgerKey identifies one attempt ledger. SectionID is empty for
// location-level assessments.
type LedgerKey struct {
	UserID     string `json:"userId"`
	LocationID string `json:"locationId"`
	SectionID  string `json:"sectionId,omitempty"`
}

// AttemptLedger accumulates a user's attempts for one ledger key. Attempts
// are append-only; the section state moves through the one-way machine in
// state.go. Revision supports optimistic-concurrency writes: stores bump it
// on every successful save and reject saves against a stale value.
type AttemptLedger struct {
	Key          LedgerKey
	Attempts     []Attempt
	State        SectionState
	NextUnlocked bool
	CompletedAt  time.Time
	Revision     int64
}

// AttemptsOn counts attempts whose timestamp falls on the same calendar day
// as now, in now's time zone.
func (l *AttemptLedger) AttemptsOn(now time.Time) int {
	count := 0
	for _, a := range l.Attempts {
		if SameDay(a.SubmittedAt.In(now.Location()), now) {
			count++
		}
	}
	return count
}

// Record appends an attempt and advances the section state. A passing
// attempt moves InProgress to Passed exactly once; failing attempts after a
// pass leave the state untouched.
func (l *AttemptLedger) Record(a Attempt, now time.Time) {
	l.State = l.State.Normalize()
	l.Attempts = append(l.Attempts, a)
	if l.State == StateNotStarted {
		l.State = StateInProgress
	}
	if a.Passed && l.State.CanAdvanceTo(StatePassed) {
		l.State = StatePassed
		l.NextUnlocked = true
		l.CompletedAt = now
	}
}

// SameDay reports whether a and b share a calendar date. Callers convert
// both to the same zone first.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WatchRecord tracks one user's progress through one video.
type WatchRecord struct {
	UserID         string    `json:"userId"`
	LocationID     string    `json:"locationId"`
	SectionID      string    `json:"sectionId"`
	VideoID        string    `json:"videoId"`
	WatchedSeconds int       `json:"watchedSeconds"`
	Completed      bool      `json:"isCompleted"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Apply folds a new playback position into the record. Watched seconds only
// grow, and completion is monotone: once reached it survives any later
// report of a smaller position.
func (w *WatchRecord) Apply(watchedSeconds, canonicalSeconds, toleranceSeconds int, now time.Time) {
	if watchedSeconds > w.WatchedSeconds {
		w.WatchedSeconds = watchedSeconds
	}
	if watchedSeconds >= canonicalSeconds-toleranceSeconds {
		w.Completed = true
	}
	w.UpdatedAt = now
}

// CatalogVideo is a video in the content catalog with its canonical duration.
type CatalogVideo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
}

// CatalogSection groups the videos of one curriculum section.
type CatalogSection struct {
	ID     string         `json:"id"`
	Number string         `json:"sectionNumber"`
	Title  string         `json:"title"`
	Videos []CatalogVideo `json:"videos"`
}

// User carries the identity attributes certificate issuance needs. User
// records themselves are owned by the auth subsystem.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CertificateStatus is recomputed against ValidUntil; Active is the only
// status ever written at issuance.
type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "Active"
	CertificateExpired CertificateStatus = "Expired"
)

// ValidityYears is the certificate validity window from the issue date.
const ValidityYears = 3

// Certificate is issued at most once per (user, location) pair and is
// immutable afterwards except for the Active -> Expired status transition.
type Certificate struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	LocationID  string            `json:"locationId"`
	Number      string            `json:"certificateNumber"`
	Email       string            `json:"email"`
	Name        string            `json:"certificateName"`
	IssuedBy    string            `json:"certificateIssuedBy"`
	Status      CertificateStatus `json:"status"`
	IssueDate   time.Time         `json:"issueDate"`
	ValidUntil  time.Time         `json:"validUntil"`
	ArtifactURL string            `json:"certificateUrl"`
}

// CertificateFields is the renderer input for one certificate artifact.
type CertificateFields struct {
	Name         string
	LocationName string
	Email        string
	Number       string
	IssuedBy     string
	IssueDate    time.Time
	ValidUntil   time.Time
}

// FormatCertificateNumber formats a sequence value as CERT-001, CERT-002, ...
// growing past three digits as the sequence does.
func FormatCertificateNumber(value int64) string {
	return fmt.Sprintf("CERT-%03d", value)
}
