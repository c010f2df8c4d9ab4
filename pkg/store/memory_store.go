package store

import (
	"sort"
	"sync"

	"bookshelf/pkg/domain"
)

// MemoryStore keeps all rows in-process. It enforces the same uniqueness
// and referential rules as GormStore, serialized under one mutex, and is
// used by application and handler tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[uint]domain.User
	books   map[uint]domain.Book
	reviews map[uint]domain.Review
	nextID  uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uint]domain.User),
		books:   make(map[uint]domain.Book),
		reviews: make(map[uint]domain.Review),
		nextID:  1,
	}
}

func (m *MemoryStore) allocID() uint {
	id := m.nextID
	m.nextID++
	return id
}

// CreateUser registers a user, rejecting duplicate emails.
func (m *MemoryStore) CreateUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = m.allocID()
	m.users[u.ID] = *u
	return nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByEmail looks up a user by email, byte-wise as stored.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// ListUsers returns all users ordered by ID.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// UpdateUser applies a partial update and reports affected rows.
func (m *MemoryStore) UpdateUser(id uint, upd UserUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	if upd.Email != nil {
		for _, other := range m.users {
			if other.ID != id && other.Email == *upd.Email {
				return 0, ErrDuplicate
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.SenhaHash != nil {
		u.SenhaHash = *upd.SenhaHash
	}
	m.users[id] = u
	return 1, nil
}

// DeleteUser removes a user; dependent reviews are left in place.
func (m *MemoryStore) DeleteUser(id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

// CreateBook stores a book, rejecting duplicate ISBNs.
func (m *MemoryStore) CreateBook(b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.books {
		if existing.ISBN == b.ISBN {
			return ErrDuplicate
		}
	}
	b.ID = m.allocID()
	m.books[b.ID] = *b
	return nil
}

// GetBook retrieves a book by ID.
func (m *MemoryStore) GetBook(id uint) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// ListBooks returns all books ordered by ID.
func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.books))
	for _, b := range m.books {
		res = append(res, b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// UpdateBook applies a partial update and reports affected rows.
func (m *MemoryStore) UpdateBook(id uint, upd BookUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return 0, nil
	}
	if upd.ISBN != nil {
		for _, other := range m.books {
			if other.ID != id && other.ISBN == *upd.ISBN {
				return 0, ErrDuplicate
			}
		}
		b.ISBN = *upd.ISBN
	}
	if upd.Title != nil {
		b.Title = *upd.Title
	}
	if upd.Author != nil {
		b.Author = *upd.Author
	}
	if upd.Genre != nil {
		b.Genre = *upd.Genre
	}
	m.books[id] = b
	return 1, nil
}

// DeleteBook removes a book unless reviews still reference it.
func (m *MemoryStore) DeleteBook(id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return false, nil
	}
	for _, r := range m.reviews {
		if r.BookID == id {
			return false, ErrBookHasReviews
		}
	}
	delete(m.books, id)
	return true, nil
}

// CreateReview verifies both referenced rows exist before inserting.
func (m *MemoryStore) CreateReview(r *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[r.BookID]; !ok {
		return ErrBookNotFound
	}
	if _, ok := m.users[r.UserID]; !ok {
		return ErrUserNotFound
	}
	r.ID = m.allocID()
	m.reviews[r.ID] = *r
	return nil
}

// GetReview retrieves a review by ID.
func (m *MemoryStore) GetReview(id uint) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

// ListReviews returns all reviews ordered by ID.
func (m *MemoryStore) ListReviews() ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// ListReviewsByBook returns the reviews referencing one book.
func (m *MemoryStore) ListReviewsByBook(bookID uint) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if r.BookID == bookID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// UpdateReview applies a partial update, re-verifying any re-pointed
// foreign key.
func (m *MemoryStore) UpdateReview(id uint, upd ReviewUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return 0, nil
	}
	if upd.BookID != nil {
		if _, ok := m.books[*upd.BookID]; !ok {
			return 0, ErrBookNotFound
		}
		r.BookID = *upd.BookID
	}
	if upd.UserID != nil {
		if _, ok := m.users[*upd.UserID]; !ok {
			return 0, ErrUserNotFound
		}
		r.UserID = *upd.UserID
	}
	if upd.Title != nil {
		r.Title = *upd.Title
	}
	if upd.Content != nil {
		r.Content = *upd.Content
	}
	if upd.Rating != nil {
		r.Rating = *upd.Rating
	}
	m.reviews[id] = r
	return 1, nil
}

// DeleteReview removes a review unconditionally.
func (m *MemoryStore) DeleteReview(id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return false, nil
	}
	delete(m.reviews, id)
	return true, nil
}

// CountReviewsByBook counts reviews referencing one book.
func (m *MemoryStore) CountReviewsByBook(bookID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, r := range m.reviews {
		if r.BookID == bookID {
			count++
		}
	}
	return count, nil
}
