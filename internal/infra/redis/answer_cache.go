package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"cartie-training-service/internal/app"
)

// AnswerCache caches the correct-option map of a scope in Redis and falls
// back to the question repository on a miss.
// Answers are stored as: HSET answers:{locationID}:{sectionID} {questionID} {optionID}
type AnswerCache struct {
	client *redis.Client
	source app.QuestionRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerCache(client *redis.Client, source app.QuestionRepository, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerCache) CorrectOptions(ctx context.Context, locationID, sectionID string) (map[string]string, error) {
	key := c.key(locationID, sectionID)

	answers, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(answers) > 0 {
		return answers, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the hash.
		answers, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(answers) > 0 {
			return answers, nil
		}

		questions, err := c.source.Questions(ctx, locationID, sectionID)
		if err != nil {
			return nil, err
		}
		answers = make(map[string]string, len(questions))
		for _, q := range questions {
			if correct := q.CorrectOption(); correct != "" {
				answers[q.ID] = correct
			}
		}
		if len(answers) == 0 {
			return answers, nil
		}

		pipe := c.client.Pipeline()
		for questionID, optionID := range answers {
			pipe.HSet(ctx, key, questionID, optionID)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

func (c *AnswerCache) key(locationID, sectionID string) string {
	return "answers:" + locationID + ":" + sectionID
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
