package repos

import (
	"context"
	"sort"
	"sync"
	"time"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/seed"
)

// Memory is the volatile store. It starts from a seed bundle and loses every
// change when the process exits. Records handed out are copies.
type Memory struct {
	mu         sync.RWMutex
	opts       options
	categories []domain.Category
	subs       []domain.SubCategory
	products   []domain.Product
	quotes     []domain.Quote
	outbox     []domain.Notification
}

var _ Store = (*Memory)(nil)

func NewMemory(b seed.Bundle, opts ...Option) *Memory {
	m := &Memory{opts: buildOptions(opts)}
	m.categories = append([]domain.Category(nil), b.Categories...)
	for _, s := range b.SubCategories {
		m.subs = append(m.subs, s.Clone())
	}
	for _, p := range b.Products {
		m.products = append(m.products, normalizeProduct(p).Clone())
	}
	return m
}

func (m *Memory) Close() error { return nil }

// ---------- Categories ----------

func (m *Memory) Categories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Category{}, m.categories...), nil
}

func (m *Memory) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.opts.newID()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *Memory) UpdateCategory(ctx context.Context, id string, p domain.CategoryPatch) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == id {
			p.Apply(&m.categories[i])
			out := m.categories[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) DeleteCategory(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, c := range m.categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	m.categories = append(m.categories[:idx], m.categories[idx+1:]...)

	removed := map[string]bool{}
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s.CategoryID == id {
			removed[s.ID] = true
			continue
		}
		kept = append(kept, s)
	}
	m.subs = kept
	if m.opts.policy == CascadeProducts {
		m.dropProductsLocked(removed)
	}
	return true, nil
}

// ---------- Subcategories ----------

func (m *Memory) SubCategories(ctx context.Context, categoryID string) ([]domain.SubCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.SubCategory{}
	for _, s := range m.subs {
		if categoryID == "" || s.CategoryID == categoryID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *Memory) SubCategory(ctx context.Context, id string) (*domain.SubCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.subLocked(id); s != nil {
		out := s.Clone()
		return &out, nil
	}
	return nil, nil
}

func (m *Memory) SubCategoryBySlug(ctx context.Context, categoryID, slug string) (*domain.SubCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.CategoryID == categoryID && s.Slug == slug {
			out := s.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddSubCategory(ctx context.Context, s domain.SubCategory) (domain.SubCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.opts.newID()
	if s.SpecificationFields == nil {
		s.SpecificationFields = []domain.SpecificationField{}
	}
	m.subs = append(m.subs, s.Clone())
	return s.Clone(), nil
}

func (m *Memory) UpdateSubCategory(ctx context.Context, id string, p domain.SubCategoryPatch) (*domain.SubCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subLocked(id)
	if s == nil {
		return nil, nil
	}
	p.Apply(s)
	*s = s.Clone()
	out := s.Clone()
	return &out, nil
}

func (m *Memory) DeleteSubCategory(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s.ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			if m.opts.policy == CascadeProducts {
				m.dropProductsLocked(map[string]bool{id: true})
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) subLocked(id string) *domain.SubCategory {
	for i := range m.subs {
		if m.subs[i].ID == id {
			return &m.subs[i]
		}
	}
	return nil
}

// ---------- Products ----------

func (m *Memory) Products(ctx context.Context, categoryID, subCategoryID string) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var match func(domain.Product) bool
	switch {
	case subCategoryID != "":
		match = func(p domain.Product) bool { return p.SubCategoryID == subCategoryID }
	case categoryID != "":
		ids := map[string]bool{}
		for _, s := range m.subs {
			if s.CategoryID == categoryID {
				ids[s.ID] = true
			}
		}
		match = func(p domain.Product) bool { return ids[p.SubCategoryID] }
	default:
		match = func(domain.Product) bool { return true }
	}

	out := []domain.Product{}
	for _, p := range m.products {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Product(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID != id {
			continue
		}
		out := p.Clone()
		if sub := m.subLocked(p.SubCategoryID); sub != nil {
			out = reshapeSpecifications(out, *sub)
		}
		return &out, nil
	}
	return nil, nil
}

func (m *Memory) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalizeProduct(p)
	p.ID = m.opts.newID()
	m.products = append(m.products, p.Clone())
	return p.Clone(), nil
}

func (m *Memory) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			patch.Apply(&m.products[i])
			m.products[i] = normalizeProduct(m.products[i]).Clone()
			out := m.products[i].Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) dropProductsLocked(subIDs map[string]bool) {
	if len(subIDs) == 0 {
		return
	}
	kept := m.products[:0]
	for _, p := range m.products {
		if !subIDs[p.SubCategoryID] {
			kept = append(kept, p)
		}
	}
	m.products = kept
}

// ---------- Quotes ----------

func (m *Memory) Quotes(ctx context.Context) ([]domain.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Quote{}, m.quotes...), nil
}

func (m *Memory) Quote(ctx context.Context, id string) (*domain.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.quotes {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddQuote(ctx context.Context, q domain.Quote) (domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = newQuote(q, m.opts)
	m.quotes = append(m.quotes, q)
	return q, nil
}

func (m *Memory) UpdateQuoteStatus(ctx context.Context, id string, status domain.QuoteStatus) (*domain.Quote, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.quotes {
		if m.quotes[i].ID == id {
			m.quotes[i].Status = status
			out := m.quotes[i]
			return &out, nil
		}
	}
	return nil, nil
}

// ---------- Specification fields ----------

func (m *Memory) SpecificationFields(ctx context.Context, subCategoryID string) ([]domain.SpecificationField, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.subLocked(subCategoryID)
	if s == nil {
		return []domain.SpecificationField{}, nil
	}
	return s.Clone().SpecificationFields, nil
}

func (m *Memory) AddSpecificationField(ctx context.Context, subCategoryID string, f domain.SpecificationField) (*domain.SpecificationField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subLocked(subCategoryID)
	if s == nil {
		return nil, nil
	}
	f.ID = m.opts.newID()
	f = f.Clone()
	s.SpecificationFields = append(s.SpecificationFields, f)
	out := f.Clone()
	return &out, nil
}

func (m *Memory) UpdateSpecificationField(ctx context.Context, subCategoryID, fieldID string, p domain.SpecificationFieldPatch) (*domain.SpecificationField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subLocked(subCategoryID)
	if s == nil {
		return nil, nil
	}
	for i := range s.SpecificationFields {
		if s.SpecificationFields[i].ID == fieldID {
			p.Apply(&s.SpecificationFields[i])
			s.SpecificationFields[i] = s.SpecificationFields[i].Clone()
			out := s.SpecificationFields[i].Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) DeleteSpecificationField(ctx context.Context, subCategoryID, fieldID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subLocked(subCategoryID)
	if s == nil {
		return false, nil
	}
	for i, f := range s.SpecificationFields {
		if f.ID == fieldID {
			s.SpecificationFields = append(s.SpecificationFields[:i], s.SpecificationFields[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ---------- Outbox ----------

func (m *Memory) Enqueue(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = newNotification(n, m.opts)
	m.outbox = append(m.outbox, n)
	return n, nil
}

func (m *Memory) Due(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Notification{}
	for _, n := range m.outbox {
		if n.Status != domain.NotificationPending {
			continue
		}
		next, err := time.Parse(time.RFC3339, n.NextAttemptAt)
		if err == nil && next.After(now) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextAttemptAt < out[j].NextAttemptAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkSent(ctx context.Context, id string, at time.Time) error {
	return m.updateNotification(id, func(n *domain.Notification) {
		n.Status = domain.NotificationSent
		n.Attempts++
		n.LastError = ""
		n.SentAt = timestamp(at)
	})
}

func (m *Memory) MarkRetry(ctx context.Context, id, lastErr string, next time.Time) error {
	return m.updateNotification(id, func(n *domain.Notification) {
		n.Attempts++
		n.LastError = lastErr
		n.NextAttemptAt = timestamp(next)
	})
}

func (m *Memory) MarkFailed(ctx context.Context, id, lastErr string) error {
	return m.updateNotification(id, func(n *domain.Notification) {
		n.Status = domain.NotificationFailed
		n.Attempts++
		n.LastError = lastErr
	})
}

func (m *Memory) Notifications(ctx context.Context) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Notification{}, m.outbox...), nil
}

func (m *Memory) updateNotification(id string, fn func(*domain.Notification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.outbox {
		if m.outbox[i].ID == id {
			fn(&m.outbox[i])
			return nil
		}
	}
	return nil
}
