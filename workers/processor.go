// Package workers drains the background request queues.
package workers

import (
	"time"

	"gorm.io/gorm"
)

// process makes one pass over the queued requests selected by scope, in
// batches of 100. A request for which fn succeeds leaves the queue. A
// failed request stays, with its attempt count, time and error recorded;
// a scope that selects only unattempted rows will not return it again.
// process reports how many requests were handled and how many failed.
func process[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, fn func(T) error) (handled, failed int, err error) {
	var batch []T
	err = db.Scopes(scope).FindInBatches(&batch, 100, func(_ *gorm.DB, _ int) error {
		return forEach(batch, func(request T) error {
			handled++
			start := time.Now()
			if err := fn(request); err != nil {
				failed++
				return db.Model(request).UpdateColumns(map[string]any{
					"attempts":     gorm.Expr("attempts + 1"),
					"last_attempt": start,
					"last_result":  err.Error(),
				}).Error
			}
			return db.Delete(request).Error
		})
	}).Error
	return handled, failed, err
}

func forEach[T any](a []T, fn func(T) error) error {
	for _, v := range a {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
