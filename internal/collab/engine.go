// Package collab keeps one authoritative Document per collaboration room.
// Edits are applied last-write-wins in arrival order, broadcast by the
// gateway, and persisted here asynchronously off the hot path.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/domain"
	"interviewhub/backend/internal/store"
)

type docState struct {
	mu  sync.Mutex
	doc *domain.Document
}

type saveJob struct {
	kind     domain.EditKind
	key      domain.CollabKey
	code     string
	language string
	elements []json.RawMessage
	event    domain.EditEvent
}

type Engine struct {
	store store.AttemptStore

	mu   sync.RWMutex
	docs map[string]*docState

	saves chan saveJob
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewEngine(st store.AttemptStore, queueSize int) *Engine {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Engine{
		store: st,
		docs:  make(map[string]*docState),
		saves: make(chan saveJob, queueSize),
		stop:  make(chan struct{}),
	}
}

// Start launches the saver worker that serializes writes to the store.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
	log.Info().Str("module", "collab").Msg("persistence worker started")
}

func (e *Engine) Stop() {
	close(e.stop)
	e.wg.Wait()
	log.Info().Str("module", "collab").Msg("persistence worker stopped")
}

// Join returns a snapshot of the room's Document, creating it on first join.
// A prior persisted Attempt, if any, seeds the fresh Document.
func (e *Engine) Join(ctx context.Context, key domain.CollabKey) (domain.Document, error) {
	ds, created := e.state(key)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if created {
		attempt, err := e.store.LoadAttempt(ctx, key)
		switch {
		case err == nil:
			ds.doc.Code = attempt.FinalCode
			ds.doc.Language = attempt.FinalLanguage
			ds.doc.Whiteboard = attempt.FinalWhiteboard
			if ds.doc.Whiteboard == nil {
				ds.doc.Whiteboard = []json.RawMessage{}
			}
			log.Info().Str("module", "collab").Str("room", key.String()).Msg("restored document from attempt")
		case errors.Is(err, store.ErrNotFound):
			// first ever visit, start empty
		default:
			log.Error().Err(err).Str("module", "collab").Str("room", key.String()).Msg("attempt load failed, starting empty")
		}
	}
	return ds.doc.Clone(), nil
}

// ApplyCode replaces the code buffer and schedules persistence. raw is the
// sender's payload, recorded verbatim in the event log.
func (e *Engine) ApplyCode(key domain.CollabKey, user domain.UserID, code, language string, raw json.RawMessage) {
	ds, _ := e.state(key)
	ds.mu.Lock()
	ds.doc.Code = code
	if language != "" {
		ds.doc.Language = language
	}
	language = ds.doc.Language
	ds.mu.Unlock()

	e.enqueue(saveJob{
		kind:     domain.EditCode,
		key:      key,
		code:     code,
		language: language,
		event: domain.EditEvent{
			Kind:      domain.EditCode,
			UserID:    user,
			Timestamp: time.Now(),
			Data:      raw,
		},
	})
}

// ApplyWhiteboard replaces the whiteboard element list and schedules persistence.
func (e *Engine) ApplyWhiteboard(key domain.CollabKey, user domain.UserID, elements []json.RawMessage, raw json.RawMessage) {
	cp := make([]json.RawMessage, len(elements))
	copy(cp, elements)

	ds, _ := e.state(key)
	ds.mu.Lock()
	ds.doc.Whiteboard = cp
	ds.mu.Unlock()

	e.enqueue(saveJob{
		kind:     domain.EditWhiteboard,
		key:      key,
		elements: cp,
		event: domain.EditEvent{
			Kind:      domain.EditWhiteboard,
			UserID:    user,
			Timestamp: time.Now(),
			Data:      raw,
		},
	})
}

// Evict drops the in-memory Document once its room is empty. The persisted
// Attempt remains the recovery path for a later rejoin.
func (e *Engine) Evict(key domain.CollabKey) {
	e.mu.Lock()
	delete(e.docs, key.String())
	e.mu.Unlock()
	log.Info().Str("module", "collab").Str("room", key.String()).Msg("document evicted")
}

func (e *Engine) state(key domain.CollabKey) (*docState, bool) {
	k := key.String()
	e.mu.RLock()
	ds, ok := e.docs[k]
	e.mu.RUnlock()
	if ok {
		return ds, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ds, ok = e.docs[k]; ok {
		return ds, false
	}
	ds = &docState{doc: domain.NewDocument()}
	e.docs[k] = ds
	return ds, true
}

// enqueue never blocks an editor; when the queue is full the snapshot write
// is dropped and the next edit carries the state forward.
func (e *Engine) enqueue(job saveJob) {
	select {
	case e.saves <- job:
	default:
		log.Warn().Str("module", "collab").Str("room", job.key.String()).Msg("persistence queue full, dropping write")
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			// drain what is already queued before shutting down
			for {
				select {
				case job := <-e.saves:
					e.persist(job)
				default:
					return
				}
			}
		case job := <-e.saves:
			e.persist(job)
		}
	}
}

func (e *Engine) persist(job saveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch job.kind {
	case domain.EditCode:
		err = e.store.SaveCode(ctx, job.key, job.code, job.language, job.event)
	case domain.EditWhiteboard:
		err = e.store.SaveWhiteboard(ctx, job.key, job.elements, job.event)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Str("room", job.key.String()).Msg("persist failed")
	}
}
