// Package retention deletes stored outputs once they are older than the
// configured age, on a cron schedule.
package retention

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/store"
)

// Prune deletes every object in s last modified before now-maxAge and
// returns the deleted names. maxAge <= 0 deletes nothing.
func Prune(ctx context.Context, s store.Store, maxAge time.Duration, now time.Time) ([]string, error) {
	if maxAge <= 0 {
		return nil, nil
	}

	objs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-maxAge)
	var deleted []string
	for _, o := range objs {
		if !o.ModTime.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, o.Name); err != nil {
			return deleted, pkgerrors.Wrapf(err, "failed to prune %s", o.Name)
		}
		deleted = append(deleted, o.Name)
	}

	if len(deleted) > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted": len(deleted),
			"maxAge":  maxAge.String(),
		}).Info("pruned old outputs")
	}
	return deleted, nil
}

// NewPruner returns a scheduler that prunes s on every tick. maxAge is read
// on each run so a config reload takes effect without a restart.
func NewPruner(s store.Store, maxAge func() time.Duration) *Scheduler {
	return NewScheduler(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, err := Prune(ctx, s, maxAge(), time.Now())
		return err
	}, func(data any) {
		logrus.Errorf("output pruning: %v", data)
	})
}
