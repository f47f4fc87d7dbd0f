package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"scribe/internal/annotations"
	"scribe/internal/util"
)

// Opener resolves a document id to an open handle. The API layer wires
// this to the document store plus the on-disk PDF directory.
type Opener func(ctx context.Context, documentID string) (Document, error)

// Manager tracks live viewer sessions by id.
type Manager struct {
	open     Opener
	annStore annotations.Store
	prefs    PrefsStore
	set      Settings

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(open Opener, annStore annotations.Store, prefs PrefsStore, set Settings) *Manager {
	return &Manager{
		open:     open,
		annStore: annStore,
		prefs:    prefs,
		set:      set,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for the document: opens the handle, loads the
// saved preferences and the annotation lists. If the caller gives up
// before loading finishes, the handle is released and nothing is
// registered.
func (m *Manager) Open(ctx context.Context, documentID string) (*Session, error) {
	doc, err := m.open(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", documentID, err)
	}
	if err := ctx.Err(); err != nil {
		doc.Close()
		return nil, err
	}

	ann := annotations.NewService(m.annStore, documentID, m.set.DefaultColor)
	if err := ann.Load(ctx); err != nil {
		doc.Close()
		return nil, fmt.Errorf("load annotations: %w", err)
	}

	s := newSession(uuid.NewString(), documentID, doc, ann, m.prefs, m.set)
	p, err := m.prefs.Get(ctx, documentID)
	if err != nil {
		log.WithError(err).WithField("document_id", documentID).Warn("load viewer prefs, using defaults")
	} else {
		s.applyPrefs(p)
	}
	if err := ctx.Err(); err != nil {
		doc.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.WithFields(log.Fields{
		"session_id":  s.ID,
		"document_id": documentID,
		"pages":       doc.PageCount(),
	}).Info("viewer session opened")
	return s, nil
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return s, nil
}

// Close removes the session and releases its resources.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return util.ErrSessionNotFound
	}
	return s.Close()
}

// Shutdown closes every live session. Used on server exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		if err := s.Close(); err != nil {
			log.WithError(err).WithField("session_id", s.ID).Warn("close session")
		}
	}
}
