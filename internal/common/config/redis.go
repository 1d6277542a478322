package config

import (
	"time"

	"github.com/avast/retry-go"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	connectAttempts = 3
	connectDelay    = 200 * time.Millisecond
)

// RedisConfig describes a redis deployment: a single server, a cluster seed list, or a
// sentinel group when MasterName is set.
type RedisConfig struct {
	Addrs        []string `validate:"required"`
	DB           int      `validate:"gte=0,lte=16"`
	Password     string
	MasterName   string
	PoolSize     int `validate:"required"`
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (rc RedisConfig) AsUniversalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        rc.Addrs,
		DB:           rc.DB,
		Password:     rc.Password,
		MasterName:   rc.MasterName,
		PoolSize:     rc.PoolSize,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}
}

// Connect opens a client and checks the server answers, retrying a few times with
// backoff. The client is closed on failure.
func (rc RedisConfig) Connect() (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(rc.AsUniversalOptions())
	err := retry.Do(
		func() error { return client.Ping().Err() },
		retry.Attempts(connectAttempts),
		retry.Delay(connectDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("redis at %v not reachable (attempt %d)", rc.Addrs, n+1)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %v", rc.Addrs)
	}
	return client, nil
}
