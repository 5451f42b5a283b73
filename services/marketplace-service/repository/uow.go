package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UnitOfWork groups several repository writes behind one commit boundary.
// Steps that must be undone when a later step fails register a compensation
// with OnRollback.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// UndoFunc reverses one completed step.
type UndoFunc func(ctx context.Context) error

type journalKey struct{}

type journal struct {
	mu    sync.Mutex
	steps []namedUndo
}

type namedUndo struct {
	name string
	undo UndoFunc
}

// OnRollback registers undo to run if the surrounding unit of work fails.
// Outside a unit of work it is a no-op.
func OnRollback(ctx context.Context, name string, undo UndoFunc) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	j.mu.Lock()
	j.steps = append(j.steps, namedUndo{name: name, undo: undo})
	j.mu.Unlock()
}

// rollback runs the registered steps newest first. It keeps going after a
// failed step and returns how many failed.
func (j *journal) rollback(ctx context.Context, logger *zap.Logger) int {
	j.mu.Lock()
	steps := j.steps
	j.steps = nil
	j.mu.Unlock()

	failed := 0
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].undo(ctx); err != nil {
			failed++
			logger.Error("compensation step failed; manual reconciliation required",
				zap.String("step", steps[i].name), zap.Error(err))
		}
	}
	return failed
}

// JournalUnitOfWork undoes completed steps in reverse order when fn fails.
// It needs no server-side transaction support.
type JournalUnitOfWork struct {
	logger      *zap.Logger
	undoTimeout time.Duration
}

func NewJournalUnitOfWork(logger *zap.Logger) *JournalUnitOfWork {
	return &JournalUnitOfWork{logger: logger, undoTimeout: 10 * time.Second}
}

func (u *JournalUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(journalKey{}).(*journal); nested {
		return fn(ctx)
	}

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		return nil
	}

	// compensate even when the request context is already done
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.undoTimeout)
	defer cancel()
	if failed := j.rollback(undoCtx, u.logger); failed > 0 {
		u.logger.Warn("unit of work rolled back with failures", zap.Int("failed_steps", failed), zap.Error(err))
	}
	return err
}

// MongoUnitOfWork runs fn inside a multi-document transaction. It requires a
// replica set or sharded cluster.
type MongoUnitOfWork struct {
	client *mongo.Client
	logger *zap.Logger
}

func NewMongoUnitOfWork(client *mongo.Client, logger *zap.Logger) *MongoUnitOfWork {
	return &MongoUnitOfWork{client: client, logger: logger}
}

func (u *MongoUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := u.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// journal only satisfies OnRollback callers; the transaction abort undoes the writes
		return nil, fn(context.WithValue(sc, journalKey{}, &journal{}))
	})
	return err
}

// NewUnitOfWork picks the transactional implementation when enabled.
func NewUnitOfWork(client *mongo.Client, transactional bool, logger *zap.Logger) UnitOfWork {
	if transactional && client != nil {
		return NewMongoUnitOfWork(client, logger)
	}
	return NewJournalUnitOfWork(logger)
}
