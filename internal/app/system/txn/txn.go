// Package txn runs multi-collection writes inside a MongoDB transaction when
// the deployment supports one (replica set or sharded cluster) and falls
// back to plain sequential writes on a standalone server.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes functions transactionally where possible.
type Runner struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Runner bound to client.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	return &Runner{client: client, log: log}
}

// Do runs fn in a transaction. If the server rejects transactions, fn is
// run once more without one and later calls skip the attempt.
//
// fn must only use the context it is given so its writes join the session.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.markUnsupported(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.markUnsupported(err)
		return fn(ctx)
	}
	return err
}

func (r *Runner) markUnsupported(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.log.Warn("transactions not supported by this deployment; writes will not be atomic",
			zap.Error(err))
	}
}

// IsNotSupported reports whether err means the server cannot run a
// transaction, as opposed to the transaction itself failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // NoReplicationEnabled (older servers)
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "illegal operation"):
		return true
	case strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") || strings.Contains(msg, "session")):
		return true
	case strings.Contains(msg, "not supported") &&
		(strings.Contains(msg, "session") || strings.Contains(msg, "transaction")):
		return true
	}
	return false
}
