package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bolita-miniapp-backend/internal/models"
)

// SessionRegistry gates when wagers may be placed. Sessions move
// absent -> open -> closed; closed is terminal for a natural key's date.
type SessionRegistry struct {
	store       *RedisService
	schedule    *Schedule
	broadcaster Broadcaster
}

func NewSessionRegistry(store *RedisService, schedule *Schedule) *SessionRegistry {
	return &SessionRegistry{store: store, schedule: schedule}
}

func (r *SessionRegistry) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// Create opens today's session for the slot. Rejected with ErrSlotExpired
// when the closing hour already passed, and with ErrDuplicateSession when
// the natural key is taken.
func (r *SessionRegistry) Create(lottery, timeSlot string, now time.Time) (*models.Session, error) {
	endTime, err := r.schedule.EndTime(lottery, timeSlot, now)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        models.GenerateSessionID(),
		Lottery:   lottery,
		Date:      r.schedule.Today(now),
		TimeSlot:  timeSlot,
		Status:    models.SessionOpen,
		EndTime:   endTime.Unix(),
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
	}

	// The natural-key reservation is the uniqueness guard; two concurrent
	// creates race on this SetNX and exactly one wins.
	keyReserved, err := r.store.client.SetNX(r.store.ctx,
		fmt.Sprintf(KeySessionByKey, session.NaturalKey()), session.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve session key: %v", err)
	}
	if !keyReserved {
		return nil, models.ErrDuplicateSession
	}

	if err := r.save(session); err != nil {
		return nil, err
	}

	pipe := r.store.client.TxPipeline()
	pipe.SAdd(r.store.ctx, KeySessionsOpen, session.ID)
	pipe.SAdd(r.store.ctx, fmt.Sprintf(KeySessionsByDate, session.Date), session.ID)
	if _, err := pipe.Exec(r.store.ctx); err != nil {
		return nil, fmt.Errorf("failed to index session: %v", err)
	}

	if r.broadcaster != nil {
		r.broadcaster.BroadcastSessionOpened(session)
	}

	return session, nil
}

func (r *SessionRegistry) Get(sessionID string) (*models.Session, error) {
	data, err := r.store.client.Get(r.store.ctx, fmt.Sprintf(KeySession, sessionID)).Result()
	if err == redis.Nil {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}
	return &session, nil
}

// FindActive returns the open session for the natural key, if any.
func (r *SessionRegistry) FindActive(lottery, date, timeSlot string) (*models.Session, error) {
	id, err := r.store.client.Get(r.store.ctx,
		fmt.Sprintf(KeySessionByKey, models.SessionNaturalKey(lottery, date, timeSlot))).Result()
	if err == redis.Nil {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session key: %v", err)
	}

	session, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRegistry) ListByDate(date string) ([]*models.Session, error) {
	ids, err := r.store.client.SMembers(r.store.ctx, fmt.Sprintf(KeySessionsByDate, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}

	var sessions []*models.Session
	for _, id := range ids {
		session, err := r.Get(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// RequireOpen re-reads the session and enforces both status and end_time.
// Called immediately before the ledger debit so a session expiring between
// read and write still rejects the wager.
func (r *SessionRegistry) RequireOpen(sessionID string, now time.Time) (*models.Session, error) {
	session, err := r.Get(sessionID)
	if err != nil {
		if err == models.ErrSessionNotFound {
			return nil, models.ErrSessionNotOpen
		}
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, models.ErrSessionNotOpen
	}
	if now.Unix() >= session.EndTime {
		return nil, models.ErrSessionNotOpen
	}
	return session, nil
}

// Close transitions open -> closed. Closing an already closed session is a
// no-op; closed never reopens.
func (r *SessionRegistry) Close(sessionID string) (*models.Session, error) {
	session, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionClosed {
		return session, nil
	}

	session.Status = models.SessionClosed
	session.UpdatedAt = time.Now().Unix()
	if err := r.save(session); err != nil {
		return nil, err
	}

	if err := r.store.client.SRem(r.store.ctx, KeySessionsOpen, session.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to deindex session: %v", err)
	}

	if r.broadcaster != nil {
		r.broadcaster.BroadcastSessionClosed(session)
	}

	return session, nil
}

// CloseExpired closes every open session whose end_time has passed. The
// registry is passive; a periodic external tick drives this.
func (r *SessionRegistry) CloseExpired(now time.Time) ([]*models.Session, error) {
	ids, err := r.store.client.SMembers(r.store.ctx, KeySessionsOpen).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %v", err)
	}

	var closed []*models.Session
	for _, id := range ids {
		session, err := r.Get(id)
		if err != nil {
			continue
		}
		if now.Unix() < session.EndTime {
			continue
		}
		session, err = r.Close(session.ID)
		if err != nil {
			continue
		}
		closed = append(closed, session)
	}
	return closed, nil
}

func (r *SessionRegistry) save(session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}
	return r.store.client.Set(r.store.ctx, fmt.Sprintf(KeySession, session.ID), data, 0).Err()
}
