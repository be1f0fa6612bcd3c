package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"agencydesk/internal/directory/models"
	dom "agencydesk/pkg/domain"
)

// InMemoryStore serves the directory from memory. Used in development
// (optionally pre-seeded) and in tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	agencies map[dom.AgencyID]*models.Agency
	contacts map[dom.ContactID]*models.Contact
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		agencies: make(map[dom.AgencyID]*models.Agency),
		contacts: make(map[dom.ContactID]*models.Contact),
	}
}

// PutAgency inserts or replaces an agency. Seeding only.
func (s *InMemoryStore) PutAgency(a *models.Agency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.agencies[a.ID] = &cp
}

// PutContact inserts or replaces a contact. Seeding only.
func (s *InMemoryStore) PutContact(c *models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	if agency, ok := s.agencies[c.AgencyID]; ok {
		cp.AgencyName = agency.Name
	}
	s.contacts[c.ID] = &cp
}

func (s *InMemoryStore) GetContact(_ context.Context, id dom.ContactID) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) ListContacts(_ context.Context, q models.ContactQuery) ([]*models.Contact, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Contact
	needle := strings.ToLower(q.Search)
	for _, c := range s.contacts {
		if q.AgencyID != (dom.AgencyID{}) && c.AgencyID != q.AgencyID {
			continue
		}
		if needle != "" && !matchesContact(c, needle) {
			continue
		}
		matched = append(matched, c)
	}

	// Newest first, mirroring the postgres ordering.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	pageItems := paginate(matched, q.Page, q.PageSize)

	out := make([]*models.Contact, 0, len(pageItems))
	for _, c := range pageItems {
		cp := *c
		out = append(out, &cp)
	}
	return out, total, nil
}

func matchesContact(c *models.Contact, needle string) bool {
	if strings.Contains(strings.ToLower(c.FirstName), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(c.LastName), needle) {
		return true
	}
	return c.Email != nil && strings.Contains(strings.ToLower(*c.Email), needle)
}

func (s *InMemoryStore) ListAgencies(_ context.Context, page, pageSize int) ([]*models.AgencyWithCount, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[dom.AgencyID]int)
	for _, c := range s.contacts {
		counts[c.AgencyID]++
	}

	all := make([]*models.AgencyWithCount, 0, len(s.agencies))
	for _, a := range s.agencies {
		all = append(all, &models.AgencyWithCount{Agency: *a, ContactCount: counts[a.ID]})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	return paginate(all, page, pageSize), total, nil
}

func (s *InMemoryStore) AllAgencies(_ context.Context) ([]*models.AgencyRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]*models.AgencyRef, 0, len(s.agencies))
	for _, a := range s.agencies {
		refs = append(refs, &models.AgencyRef{ID: a.ID, Name: a.Name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
