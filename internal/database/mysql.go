package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
	"vetlink/entity"
	"vetlink/internal/config"

	"github.com/go-sql-driver/mysql"
)

const errDuplicateEntry = 1062

type MySql struct {
	db         *sql.DB
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(ctx context.Context, conf *config.Config) (*MySql, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		conf.MySql.UserName, conf.MySql.Password, conf.MySql.HostName, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// wait for a database that is still starting
	if err = pingWithRetry(ctx, db, 3, 10*time.Second); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		prefix:     conf.MySql.Prefix,
		statements: make(map[string]*sql.Stmt),
	}
	if err = sdb.createTables(ctx); err != nil {
		sdb.Close()
		return nil, err
	}
	return sdb, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// pingWithRetry pings up to attempts times, waiting between tries unless ctx ends first.
func pingWithRetry(ctx context.Context, db pinger, attempts int, wait time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(wait):
		}
	}
	return err
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

// CreateCode relies on the primary key on code for create-if-absent.
func (s *MySql) CreateCode(ctx context.Context, code *entity.ConnectionCode) error {
	stmt, err := s.stmtInsertCode()
	if err != nil {
		return err
	}
	var createdAt sql.NullTime
	if code.CreatedAt != nil {
		createdAt = sql.NullTime{Time: code.CreatedAt.UTC(), Valid: true}
	}
	var ttl sql.NullInt64
	if code.TtlMinutes != nil {
		ttl = sql.NullInt64{Int64: int64(*code.TtlMinutes), Valid: true}
	}
	_, err = stmt.ExecContext(ctx, code.Code, code.TargetId, string(code.Status), createdAt, ttl, code.CreatedBy)
	if err != nil {
		if isDuplicateEntry(err) {
			return entity.ErrCodeExists
		}
		return fmt.Errorf("sql insert: %w", err)
	}
	return nil
}

func (s *MySql) GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error) {
	stmt, err := s.stmtSelectCode()
	if err != nil {
		return nil, err
	}
	var row codeRow
	err = stmt.QueryRowContext(ctx, code).Scan(
		&row.code,
		&row.targetId,
		&row.status,
		&row.createdAt,
		&row.ttlMinutes,
		&row.createdBy,
		&row.usedBy,
		&row.usedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrCodeNotFound
		}
		return nil, fmt.Errorf("sql select: %w", err)
	}
	return row.record(), nil
}

// MarkCodeUsed updates only a row still in OPEN; InnoDB row locking orders
// concurrent updates so exactly one of them affects the row.
func (s *MySql) MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error {
	stmt, err := s.stmtMarkUsed()
	if err != nil {
		return err
	}
	result, err := stmt.ExecContext(ctx, string(entity.CodeUsed), usedBy, usedAt.UTC(), code, string(entity.CodeOpen))
	if err != nil {
		return fmt.Errorf("sql update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sql rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrCodeNotOpen
	}
	return nil
}

type codeRow struct {
	code       string
	targetId   sql.NullString
	status     string
	createdAt  sql.NullTime
	ttlMinutes sql.NullInt64
	createdBy  string
	usedBy     string
	usedAt     sql.NullTime
}

func (r *codeRow) record() *entity.ConnectionCode {
	record := &entity.ConnectionCode{
		Code:      r.code,
		TargetId:  r.targetId.String,
		Status:    entity.CodeStatus(r.status),
		CreatedBy: r.createdBy,
		UsedBy:    r.usedBy,
	}
	if r.createdAt.Valid {
		t := r.createdAt.Time.UTC()
		record.CreatedAt = &t
	}
	if r.ttlMinutes.Valid {
		ttl := int(r.ttlMinutes.Int64)
		record.TtlMinutes = &ttl
	}
	if r.usedAt.Valid {
		t := r.usedAt.Time.UTC()
		record.UsedAt = &t
	}
	return record
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry
}
