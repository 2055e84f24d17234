package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cartie-training-service/internal/app"
	"cartie-training-service/internal/domain"
)

// QuestionStore is an in-memory app.QuestionRepository serving questions in
// insertion order per (location, section) scope.
type QuestionStore struct {
	byScope map[scopeKey][]domain.Question
}

type scopeKey struct {
	locationID string
	sectionID  string
}

func NewQuestionStore(questions []domain.Question) *QuestionStore {
	byScope := make(map[scopeKey][]domain.Question)
	for _, q := range questions {
		key := scopeKey{locationID: q.LocationID, sectionID: q.SectionID}
		byScope[key] = append(byScope[key], q)
	}
	return &QuestionStore{byScope: byScope}
}

func (s *QuestionStore) Questions(_ context.Context, locationID, sectionID string) ([]domain.Question, error) {
	questions := s.byScope[scopeKey{locationID: locationID, sectionID: sectionID}]
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// AnswerCache is a TTL cache over the correct-option map of a scope, with
// jittered expiry and singleflight to stop stampedes on cold keys.
type AnswerCache struct {
	source app.QuestionRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[scopeKey]cachedAnswers
}

type cachedAnswers struct {
	answers   map[string]string
	expiresAt time.Time
}

func NewAnswerCache(source app.QuestionRepository, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[scopeKey]cachedAnswers),
	}
}

func (c *AnswerCache) CorrectOptions(ctx context.Context, locationID, sectionID string) (map[string]string, error) {
	key := scopeKey{locationID: locationID, sectionID: sectionID}
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.answers, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(locationID+"/"+sectionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.answers, nil
		}
		c.mu.RUnlock()

		questions, err := c.source.Questions(ctx, locationID, sectionID)
		if err != nil {
			return nil, err
		}
		answers := make(map[string]string, len(questions))
		for _, q := range questions {
			if correct := q.CorrectOption(); correct != "" {
				answers[q.ID] = correct
			}
		}

		c.mu.Lock()
		c.cache[key] = cachedAnswers{answers: answers, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
