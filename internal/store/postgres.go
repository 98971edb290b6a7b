package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interviewhub/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	assessment_id TEXT NOT NULL,
	candidate_id  TEXT NOT NULL,
	question_id   TEXT NOT NULL,
	final_code    TEXT NOT NULL DEFAULT '',
	final_language TEXT NOT NULL DEFAULT '',
	final_whiteboard_data JSONB NOT NULL DEFAULT '[]',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (assessment_id, candidate_id, question_id)
);

CREATE TABLE IF NOT EXISTS code_events (
	id BIGSERIAL PRIMARY KEY,
	assessment_id TEXT NOT NULL,
	candidate_id  TEXT NOT NULL,
	question_id   TEXT NOT NULL,
	user_id       TEXT NOT NULL DEFAULT '',
	event_data    JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_code_events_key
	ON code_events (assessment_id, candidate_id, question_id);

CREATE TABLE IF NOT EXISTS whiteboard_events (
	id BIGSERIAL PRIMARY KEY,
	assessment_id TEXT NOT NULL,
	candidate_id  TEXT NOT NULL,
	question_id   TEXT NOT NULL,
	user_id       TEXT NOT NULL DEFAULT '',
	event_data    JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_whiteboard_events_key
	ON whiteboard_events (assessment_id, candidate_id, question_id);

CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS room_participants (
	room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	PRIMARY KEY (room_id, user_id)
);
`

// Postgres implements AttemptStore and RoomStore on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) LoadAttempt(ctx context.Context, key domain.CollabKey) (*domain.Attempt, error) {
	a := &domain.Attempt{Key: key}
	var board []byte
	err := p.pool.QueryRow(ctx,
		`SELECT final_code, final_language, final_whiteboard_data, updated_at
		 FROM attempts WHERE assessment_id=$1 AND candidate_id=$2 AND question_id=$3`,
		key.AssessmentID, key.CandidateID, key.QuestionID,
	).Scan(&a.FinalCode, &a.FinalLanguage, &board, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if err := json.Unmarshal(board, &a.FinalWhiteboard); err != nil {
		return nil, fmt.Errorf("decode whiteboard: %w", err)
	}
	return a, nil
}

func (p *Postgres) SaveCode(ctx context.Context, key domain.CollabKey, code, language string, ev domain.EditEvent) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempts (assessment_id, candidate_id, question_id, final_code, final_language, updated_at)
			 VALUES ($1,$2,$3,$4,$5,now())
			 ON CONFLICT (assessment_id, candidate_id, question_id)
			 DO UPDATE SET final_code=$4, final_language=$5, updated_at=now()`,
			key.AssessmentID, key.CandidateID, key.QuestionID, code, language,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO code_events (assessment_id, candidate_id, question_id, user_id, event_data, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			key.AssessmentID, key.CandidateID, key.QuestionID, string(ev.UserID), []byte(ev.Data), ev.Timestamp,
		)
		return err
	})
}

func (p *Postgres) SaveWhiteboard(ctx context.Context, key domain.CollabKey, elements []json.RawMessage, ev domain.EditEvent) error {
	board, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("encode whiteboard: %w", err)
	}
	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempts (assessment_id, candidate_id, question_id, final_whiteboard_data, updated_at)
			 VALUES ($1,$2,$3,$4,now())
			 ON CONFLICT (assessment_id, candidate_id, question_id)
			 DO UPDATE SET final_whiteboard_data=$4, updated_at=now()`,
			key.AssessmentID, key.CandidateID, key.QuestionID, board,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO whiteboard_events (assessment_id, candidate_id, question_id, user_id, event_data, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			key.AssessmentID, key.CandidateID, key.QuestionID, string(ev.UserID), []byte(ev.Data), ev.Timestamp,
		)
		return err
	})
}

func (p *Postgres) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) CreateRoom(ctx context.Context, room *domain.VideoRoom) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO rooms (id, created_by) VALUES ($1,$2)`,
			string(room.ID), string(room.CreatedBy),
		); err != nil {
			return err
		}
		for _, u := range room.Participants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO room_participants (room_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
				string(room.ID), string(u),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) GetRoom(ctx context.Context, id domain.RoomID) (*domain.VideoRoom, error) {
	room := &domain.VideoRoom{ID: id}
	var createdBy string
	err := p.pool.QueryRow(ctx,
		`SELECT created_by FROM rooms WHERE id=$1`, string(id),
	).Scan(&createdBy)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	room.CreatedBy = domain.UserID(createdBy)

	rows, err := p.pool.Query(ctx,
		`SELECT user_id FROM room_participants WHERE room_id=$1`, string(id))
	if err != nil {
		return nil, fmt.Errorf("room participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		room.Participants = append(room.Participants, domain.UserID(u))
	}
	return room, rows.Err()
}

func (p *Postgres) AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO room_participants (room_id, user_id)
		 SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM rooms WHERE id=$1)
		 ON CONFLICT DO NOTHING`,
		string(id), string(user))
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.GetRoom(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
