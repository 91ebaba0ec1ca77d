package database

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *MySql) createTables(ctx context.Context) error {
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %sconnection_codes (
			code CHAR(6) NOT NULL,
			target_id VARCHAR(128) NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'OPEN',
			created_at DATETIME(6) NULL,
			ttl_minutes BIGINT NULL,
			created_by VARCHAR(64) NOT NULL DEFAULT '',
			used_by VARCHAR(64) NOT NULL DEFAULT '',
			used_at DATETIME(6) NULL,
			PRIMARY KEY (code)
		) ENGINE=InnoDB`,
		s.prefix,
	)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtInsertCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %sconnection_codes
			(code, target_id, status, created_at, ttl_minutes, created_by)
			VALUES (?, ?, ?, ?, ?, ?)`,
		s.prefix,
	)
	return s.prepareStmt("insertCode", query)
}

func (s *MySql) stmtSelectCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT code, target_id, status, created_at, ttl_minutes, created_by, used_by, used_at
			FROM %sconnection_codes
			WHERE code = ?`,
		s.prefix,
	)
	return s.prepareStmt("selectCode", query)
}

func (s *MySql) stmtMarkUsed() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %sconnection_codes SET
			status = ?,
			used_by = ?,
			used_at = ?
			WHERE code = ? AND status = ?`,
		s.prefix,
	)
	return s.prepareStmt("markUsed", query)
}
