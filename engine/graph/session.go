package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherResult iterates rows from a query. Rows are exposed as plain maps so
// tests can fake results without driver types.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() map[string]any
	Err() error
}

// CypherRunner runs a single cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the minimal session surface the store needs.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions. The production implementation wraps the
// neo4j driver; tests substitute fakes.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// --- neo4j driver adapters ---

type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o *driverOpener) OpenSession(ctx context.Context) CypherSession {
	return &driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &driverResult{res: res}, nil
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&txRunner{tx: tx})
	})
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &driverResult{res: res}, nil
}

type driverResult struct {
	res neo4j.ResultWithContext
}

func (r *driverResult) Next(ctx context.Context) bool {
	return r.res.Next(ctx)
}

func (r *driverResult) Record() map[string]any {
	rec := r.res.Record()
	if rec == nil {
		return nil
	}
	m := make(map[string]any, len(rec.Keys))
	for i, k := range rec.Keys {
		m[k] = rec.Values[i]
	}
	return m
}

func (r *driverResult) Err() error {
	return r.res.Err()
}
