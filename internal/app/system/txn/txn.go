// Package txn wraps MongoDB multi-document transactions.
//
// Transactions need a replica set or sharded cluster. Development setups
// often run a standalone mongod, so Run falls back to executing the work
// without a session and tells the caller it did so.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// notSupportedCodes are server error codes meaning "transactions are
// unavailable here" (standalone mongod, unsupported storage engine, ...).
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err indicates the server cannot run
// transactions, as opposed to the transaction itself failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if notSupportedCodes[cmdErr.Code] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	hasSession := strings.Contains(msg, "session")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && hasSession:
		return true
	case hasSession && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}

// Runner runs functions inside transactions on one client.
type Runner struct {
	Client *mongo.Client
	Log    *zap.Logger
}

// New returns a Runner for client.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	return &Runner{Client: client, Log: logger}
}

// Run executes fn in a transaction. The ctx passed to fn carries the
// session, so store calls made with it join the transaction.
//
// When the deployment cannot run transactions, fn is executed once more
// without a session and transactional is false. fn must tolerate being
// retried: the driver re-runs it on transient transaction errors.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) (transactional bool, err error) {
	sess, err := r.Client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return false, r.fallback(ctx, err, fn)
		}
		return false, err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return false, r.fallback(ctx, err, fn)
	}
	return true, err
}

func (r *Runner) fallback(ctx context.Context, cause error, fn func(ctx context.Context) error) error {
	if r.Log != nil {
		r.Log.Warn("transactions unavailable; running without one", zap.Error(cause))
	}
	return fn(ctx)
}
