// Package memory provides in-process implementations of the repository interfaces.
// They back the service when no Postgres DSN is configured and in tests.
package memory

import (
	"sync"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds all state. Identity arenas share one mutex so admission decisions and
// duplicate checks see both arenas at once. Each ticket record carries its own mutex.
type Store struct {
	identityMu sync.Mutex
	actors     map[string]*domain.Actor
	pending    map[string]*domain.PendingActor

	ticketsMu sync.RWMutex
	tickets   map[int64]*ticketRecord

	seqMu         sync.Mutex
	ticketSeq     int64
	commentSeq    int64
	historySeq    int64
	attachmentSeq int64
}

type ticketRecord struct {
	mu       sync.Mutex
	ticket   *domain.Ticket
	comments []domain.Comment
	history  []domain.TicketHistory
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		actors:  map[string]*domain.Actor{},
		pending: map[string]*domain.PendingActor{},
		tickets: map[int64]*ticketRecord{},
	}
}

// Actors exposes the store as an ActorRepository.
func (s *Store) Actors() repository.ActorRepository { return &actorRepository{s: s} }

// Admissions exposes the store as an AdmissionRepository.
func (s *Store) Admissions() repository.AdmissionRepository { return &admissionRepository{s: s} }

// Tickets exposes the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepository{s: s} }

// Comments exposes the store as a CommentRepository.
func (s *Store) Comments() repository.CommentRepository { return &commentRepository{s: s} }

// History exposes the store as a TicketHistoryRepository.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepository{s: s} }

// Attachments exposes the store as an AttachmentRepository.
func (s *Store) Attachments() repository.AttachmentRepository { return &attachmentRepository{s: s} }

// Set returns every repository backed by this store.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Actors:      s.Actors(),
		Admissions:  s.Admissions(),
		Tickets:     s.Tickets(),
		Comments:    s.Comments(),
		History:     s.History(),
		Attachments: s.Attachments(),
	}
}

func (s *Store) next(seq *int64) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	*seq++
	return *seq
}

func (s *Store) record(id int64) (*ticketRecord, bool) {
	s.ticketsMu.RLock()
	defer s.ticketsMu.RUnlock()
	rec, ok := s.tickets[id]
	return rec, ok
}
