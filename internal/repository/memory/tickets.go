package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type ticketRepository struct {
	s *Store
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	ticket.ID = r.s.next(&r.s.ticketSeq)
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	for i := range ticket.Attachments {
		ticket.Attachments[i].ID = r.s.next(&r.s.attachmentSeq)
		ticket.Attachments[i].TicketID = ticket.ID
		ticket.Attachments[i].CreatedAt = now
	}

	r.s.ticketsMu.Lock()
	r.s.tickets[ticket.ID] = &ticketRecord{ticket: ticket.Clone()}
	r.s.ticketsMu.Unlock()
	return nil
}

func (r *ticketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	rec, ok := r.s.record(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	t := rec.ticket.Clone()
	t.Attachments = nil
	return t, nil
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.ticketsMu.RLock()
	records := make([]*ticketRecord, 0, len(r.s.tickets))
	for _, rec := range r.s.tickets {
		records = append(records, rec)
	}
	r.s.ticketsMu.RUnlock()

	var matched []domain.Ticket
	for _, rec := range records {
		rec.mu.Lock()
		t := rec.ticket.Clone()
		rec.mu.Unlock()
		if !matches(t, filter) {
			continue
		}
		t.Attachments = nil
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func matches(t *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssigneeID != nil && !t.IsAssignedTo(*filter.AssigneeID) {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if t.Status == status {
			return true
		}
	}
	return false
}

func (r *ticketRepository) Apply(_ context.Context, m *repository.Mutation) error {
	rec, ok := r.s.record(m.TicketID)
	if !ok {
		return repository.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.ticket.Version != m.ExpectedVersion {
		return repository.ErrVersionConflict
	}

	now := time.Now().UTC()
	if m.Next != nil {
		next := rec.ticket.Clone()
		next.Status = m.Next.Status
		next.AssigneeID = m.Next.AssigneeID
		next.Rating = m.Next.Rating
		next.ClosedAt = m.Next.ClosedAt
		next.Version++
		next.UpdatedAt = now
		rec.ticket = next

		m.Next.Version = next.Version
		m.Next.UpdatedAt = now
	}
	if m.Comment != nil {
		m.Comment.ID = r.s.next(&r.s.commentSeq)
		m.Comment.TicketID = m.TicketID
		m.Comment.CreatedAt = now
		rec.comments = append(rec.comments, *m.Comment)
	}
	for i := range m.History {
		h := &m.History[i]
		h.ID = r.s.next(&r.s.historySeq)
		h.TicketID = m.TicketID
		h.CreatedAt = now
		rec.history = append(rec.history, *h)
	}
	return nil
}

func (r *ticketRepository) Summarize(_ context.Context) (*repository.TicketSummary, error) {
	summary := &repository.TicketSummary{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[string]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}

	r.s.ticketsMu.RLock()
	defer r.s.ticketsMu.RUnlock()
	for _, rec := range r.s.tickets {
		rec.mu.Lock()
		summary.Total++
		summary.ByStatus[rec.ticket.Status]++
		summary.ByCategory[rec.ticket.Category]++
		summary.ByPriority[rec.ticket.Priority]++
		rec.mu.Unlock()
	}
	return summary, nil
}

type commentRepository struct {
	s *Store
}

func (r *commentRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	rec, ok := r.s.record(ticketID)
	if !ok {
		return nil, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	// appended under the record lock, so slice order is creation order
	return append([]domain.Comment(nil), rec.comments...), nil
}

type historyRepository struct {
	s *Store
}

func (r *historyRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	rec, ok := r.s.record(ticketID)
	if !ok {
		return nil, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]domain.TicketHistory(nil), rec.history...), nil
}

type attachmentRepository struct {
	s *Store
}

func (r *attachmentRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.AttachmentReference, error) {
	rec, ok := r.s.record(ticketID)
	if !ok {
		return nil, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]domain.AttachmentReference(nil), rec.ticket.Attachments...), nil
}
