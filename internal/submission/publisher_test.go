package submission

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

func TestRedisPublisher_Publish(t *testing.T) {
	withPublisher(func(p *RedisPublisher) {
		r := newTestRegistry(&fakeClock{now: baseTime}, 0)
		a := r.Resolve("sub-A", "alice")
		a.Increment(jobattr.Running)
		a.Increment(jobattr.Running)
		a.Increment(jobattr.Completed)
		r.Resolve("sub-B", "bob").Increment(jobattr.Idle)

		require.NoError(t, p.Publish(r.List()))

		published, err := p.Published()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sub-A", "sub-B"}, published)

		got, err := p.Get("sub-A")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Owner)
		assert.Equal(t, 2, got.Live)
		assert.Equal(t, 2, got.Counts[jobattr.Running])
		assert.Equal(t, 1, got.Counts[jobattr.Completed])
		assert.Equal(t, 0, got.Counts[jobattr.Held])
		assert.Equal(t, baseTime.Unix(), got.LastChange.Unix())
	})
}

func TestRedisPublisher_RemovesStaleSubmissions(t *testing.T) {
	withPublisher(func(p *RedisPublisher) {
		clock := &fakeClock{now: baseTime}
		r := newTestRegistry(clock, time.Minute)
		r.Resolve("sub-A", "alice").Increment(jobattr.Idle)
		r.Resolve("sub-B", "bob")
		require.NoError(t, p.Publish(r.List()))

		clock.now = baseTime.Add(time.Hour)
		assert.Equal(t, []string{"sub-B"}, r.Sweep())
		require.NoError(t, p.Publish(r.List()))

		published, err := p.Published()
		require.NoError(t, err)
		assert.Equal(t, []string{"sub-A"}, published)

		gone, err := p.Get("sub-B")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}

func TestRedisPublisher_PublishNothing(t *testing.T) {
	withPublisher(func(p *RedisPublisher) {
		require.NoError(t, p.Publish(nil))
		published, err := p.Published()
		require.NoError(t, err)
		assert.Empty(t, published)
	})
}

func withPublisher(action func(p *RedisPublisher)) {
	db, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer db.Close()

	client := redis.NewClient(&redis.Options{Addr: db.Addr()})
	defer client.Close()
	action(NewRedisPublisher(client))
}
