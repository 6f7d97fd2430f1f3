// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/hanabi/internal/models"
)

// Game statuses in the archive.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// GameSummary is one archived game row.
type GameSummary struct {
	ID        uuid.UUID
	Status    string
	StartTime time.Time
	EndTime   *time.Time
	Score     *int
	EndReason *string
	Actions   int
}

// gameOverPayload is the part of a GAME_OVER payload the archive keeps.
type gameOverPayload struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// InsertActions writes a batch of records in one transaction. Duplicate
// (game_id, action_index) pairs are ignored so a redelivered batch is harmless.
func InsertActions(ctx context.Context, pool *pgxpool.Pool, recs []models.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("action %d of game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert actions: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	recordedAt := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, recordedAt); err != nil {
		return err
	}

	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	actionInsertQ := `
		INSERT INTO game_actions (game_id, action_index, actor, action_type, action_payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ, rec.GameID, rec.ActionIndex, rec.Actor, rec.ActionType, []byte(payload), recordedAt); err != nil {
		return err
	}

	switch rec.ActionType {
	case models.ActionGameOver:
		var over gameOverPayload
		if err := json.Unmarshal(payload, &over); err != nil {
			return fmt.Errorf("game over payload: %w", err)
		}
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = $2, score = $3, end_reason = $4
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, finalizeQ, rec.GameID, recordedAt, over.Score, over.Reason)
		return err
	case models.ActionAbandoned:
		return markAbandonedTx(ctx, tx, rec.GameID, recordedAt)
	}
	return nil
}

// MarkAbandoned closes a game that is still in progress.
func MarkAbandoned(ctx context.Context, pool *pgxpool.Pool, gameID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return markAbandonedTx(ctx, tx, gameID, time.Now())
	})
}

func markAbandonedTx(ctx context.Context, tx pgx.Tx, gameID uuid.UUID, at time.Time) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = $2
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err := tx.Exec(ctx, q, gameID, at)
	return err
}

// GetGameSummary loads one archived game with its action count.
func GetGameSummary(ctx context.Context, pool *pgxpool.Pool, gameID uuid.UUID) (*GameSummary, error) {
	q := `
		SELECT g.id, g.status, g.start_time, g.end_time, g.score, g.end_reason,
		       (SELECT COUNT(*) FROM game_actions a WHERE a.game_id = g.id)
		FROM games g
		WHERE g.id = $1
	`
	var s GameSummary
	err := pool.QueryRow(ctx, q, gameID).Scan(&s.ID, &s.Status, &s.StartTime, &s.EndTime, &s.Score, &s.EndReason, &s.Actions)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Archive binds the archive queries to a pool.
type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

func (a *Archive) InsertActions(ctx context.Context, recs []models.ActionRecord) error {
	return InsertActions(ctx, a.pool, recs)
}

func (a *Archive) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return MarkAbandoned(ctx, a.pool, gameID)
}
