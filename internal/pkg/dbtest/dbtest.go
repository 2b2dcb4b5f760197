// Package dbtest opens gorm handles that render postgres SQL without a server.
//
// Statements are built by the real postgres dialector in DryRun mode and
// recorded together with their bind variables, so repository tests can assert
// the WHERE, ON CONFLICT and locking clauses a query would send.
package dbtest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoServer = errors.New("dbtest: statements are not executed")

// Statement is one rendered query with its bind variables
type Statement struct {
	SQL  string
	Vars []interface{}
}

// Var returns the value bound to placeholder $n
func (s Statement) Var(n int) interface{} {
	if n < 1 || n > len(s.Vars) {
		return nil
	}
	return s.Vars[n-1]
}

type failure struct {
	prefix string
	err    error
}

// Recorder collects statements and transaction events in order
type Recorder struct {
	mu         sync.Mutex
	statements []Statement
	events     []string
	failures   []failure
}

// Statements returns every recorded statement
func (r *Recorder) Statements() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.statements...)
}

// Events returns BEGIN, COMMIT and ROLLBACK markers
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// FailOn makes the next statement starting with prefix return err
func (r *Recorder) FailOn(prefix string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{prefix: prefix, err: err})
}

func (r *Recorder) record(db *gorm.DB) {
	sqlText := db.Statement.SQL.String()
	vars := append([]interface{}(nil), db.Statement.Vars...)

	r.mu.Lock()
	r.statements = append(r.statements, Statement{SQL: sqlText, Vars: vars})
	var injected error
	for i, f := range r.failures {
		if strings.HasPrefix(sqlText, f.prefix) {
			injected = f.err
			r.failures = append(r.failures[:i], r.failures[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if injected != nil {
		_ = db.AddError(injected)
	}
}

func (r *Recorder) event(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

// New returns a DryRun gorm handle on the postgres dialector and its recorder
func New(t testing.TB) (*gorm.DB, *Recorder) {
	t.Helper()

	rec := &Recorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: &pool{rec: rec}}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	cb := db.Callback()
	require.NoError(t, cb.Create().After("gorm:create").Register("dbtest:record", rec.record))
	require.NoError(t, cb.Query().After("gorm:query").Register("dbtest:record", rec.record))
	require.NoError(t, cb.Update().After("gorm:update").Register("dbtest:record", rec.record))
	require.NoError(t, cb.Delete().After("gorm:delete").Register("dbtest:record", rec.record))
	require.NoError(t, cb.Row().After("gorm:row").Register("dbtest:record", rec.record))

	return db, rec
}

// pool stands in for *sql.DB. DryRun never reaches the query methods.
type pool struct {
	rec *Recorder
}

func (p *pool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errNoServer
}

func (p *pool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoServer
}

func (p *pool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoServer
}

func (p *pool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (p *pool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	p.rec.event("BEGIN")
	return &tx{pool: p}, nil
}

type tx struct {
	*pool
}

func (t *tx) Commit() error {
	t.rec.event("COMMIT")
	return nil
}

func (t *tx) Rollback() error {
	t.rec.event("ROLLBACK")
	return nil
}
