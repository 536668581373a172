package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/databases"
)

// Scheduler runs the periodic background sweeps: lifting expired account
// restrictions and pruning dead sessions.
type Scheduler struct {
	cron *cron.Cron
	UDB  databases.UserDatabase
	SDB  databases.SessionDatabase
}

// NewScheduler creates a new scheduler instance
func NewScheduler(uDB databases.UserDatabase, sDB databases.SessionDatabase) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		UDB:  uDB,
		SDB:  sDB,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// lift expired restrictions hourly; login also checks the end date so
	// this only keeps the documents tidy
	_, err := s.cron.AddFunc("@hourly", s.clearExpiredRestrictions)
	if err != nil {
		zap.S().Errorw("failed to register restriction sweep", "error", err)
	}

	// prune expired and revoked sessions daily at 3 AM UTC
	_, err = s.cron.AddFunc("0 3 * * *", s.pruneSessions)
	if err != nil {
		zap.S().Errorw("failed to register session prune", "error", err)
	}

	s.cron.Start()
	zap.S().Info("background scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("background scheduler stopped")
}

func (s *Scheduler) clearExpiredRestrictions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := s.UDB.UpdateMany(ctx,
		bson.M{"user.restrictionEndDate": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{
			"user.restrictionEndDate": "",
			"user.restrictionReason":  "",
		}},
	)
	if err != nil {
		zap.S().Errorw("restriction sweep failed", "error", err)
		return
	}
	if res.ModifiedCount > 0 {
		zap.S().Infow("lifted expired restrictions", "count", res.ModifiedCount)
	}
}

func (s *Scheduler) pruneSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	deleted, err := s.SDB.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"expiresAt": bson.M{"$lte": now}},
		{"revokedAt": bson.M{"$ne": nil}},
	}})
	if err != nil {
		zap.S().Errorw("session prune failed", "error", err)
		return
	}
	if deleted > 0 {
		zap.S().Infow("pruned sessions", "count", deleted)
	}
}
