package services

import (
	"context"

	"github.com/meterline/billing/pkg/pg"
	"github.com/meterline/billing/pkg/redis"
)

// HealthService reports whether the datastores behind the API are reachable.
type HealthService struct {
	db    *pg.DB
	redis redis.Adapter
}

func NewHealthService(db *pg.DB, redisAdapter redis.Adapter) *HealthService {
	return &HealthService{
		db:    db,
		redis: redisAdapter,
	}
}

func (s *HealthService) Get() error {
	ctx := context.Background()

	if s.db != nil {
		sqlDB, err := s.db.Read(ctx).DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}

	if s.redis != nil {
		if err := s.redis.Client().Ping(ctx).Err(); err != nil {
			return err
		}
	}

	return nil
}
