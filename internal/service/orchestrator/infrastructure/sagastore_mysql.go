// internal/service/orchestrator/infrastructure/sagastore_mysql.go
package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"gomall/internal/service/orchestrator/domain"

	_ "github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"
)

const createSagaTable = `
CREATE TABLE IF NOT EXISTS saga_instances (
    id         VARCHAR(64)  NOT NULL,
    user_id    VARCHAR(64)  NOT NULL,
    status     VARCHAR(16)  NOT NULL,
    steps      JSON         NOT NULL,
    items      JSON         NOT NULL,
    started_at DATETIME(3)  NOT NULL,
    deadline   DATETIME(3)  NOT NULL,
    updated_at DATETIME(3)  NOT NULL,
    PRIMARY KEY (id),
    KEY idx_status_updated (status, updated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MysqlSagaStore 把 saga 日志写进 MySQL。
// 步骤与预占意图序列化成 JSON 列，日志是只追加语义，不做关联查询。
type MysqlSagaStore struct {
	db *sql.DB
}

func NewMysqlSagaStore(dsn string) (*MysqlSagaStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open saga store")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, pkgerrors.Wrap(err, "ping saga store")
	}
	if _, err := db.Exec(createSagaTable); err != nil {
		return nil, pkgerrors.Wrap(err, "create saga table")
	}
	return &MysqlSagaStore{db: db}, nil
}

func (s *MysqlSagaStore) Close() error { return s.db.Close() }

func (s *MysqlSagaStore) Save(ctx context.Context, saga *domain.SagaInstance) error {
	steps, err := json.Marshal(saga.Steps)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal saga steps")
	}
	items, err := json.Marshal(saga.Items)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal saga items")
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO saga_instances (id, user_id, status, steps, items, started_at, deadline, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    status = VALUES(status),
    steps = VALUES(steps),
    updated_at = VALUES(updated_at)`,
		saga.ID, saga.UserID, string(saga.Status), steps, items,
		saga.StartedAt, saga.Deadline, saga.UpdatedAt)
	return pkgerrors.Wrap(err, "save saga instance")
}

func (s *MysqlSagaStore) FindByID(ctx context.Context, id string) (*domain.SagaInstance, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, status, steps, items, started_at, deadline, updated_at
FROM saga_instances WHERE id = ?`, id)
	saga, err := scanSaga(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSagaNotFound
	}
	return saga, err
}

func (s *MysqlSagaStore) FindStalled(ctx context.Context, olderThan time.Time) ([]*domain.SagaInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, status, steps, items, started_at, deadline, updated_at
FROM saga_instances
WHERE status IN (?, ?) AND updated_at < ?
ORDER BY updated_at`,
		string(domain.SagaRunning), string(domain.SagaCompensating), olderThan)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query stalled sagas")
	}
	defer rows.Close()

	var result []*domain.SagaInstance
	for rows.Next() {
		saga, err := scanSaga(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, saga)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSaga(row rowScanner) (*domain.SagaInstance, error) {
	var saga domain.SagaInstance
	var status string
	var steps, items []byte
	if err := row.Scan(&saga.ID, &saga.UserID, &status, &steps, &items,
		&saga.StartedAt, &saga.Deadline, &saga.UpdatedAt); err != nil {
		return nil, err
	}
	saga.Status = domain.SagaStatus(status)
	if err := json.Unmarshal(steps, &saga.Steps); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal saga steps")
	}
	if err := json.Unmarshal(items, &saga.Items); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal saga items")
	}
	return &saga, nil
}
