// Package app is the application core: it composes the entity store, the
// credential service, and the integrity rules behind every operation the
// HTTP layer exposes.
package app

import (
	"errors"
	"fmt"

	"bookshelf/internal/validate"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
	"bookshelf/pkg/token"
)

// Config wires required dependencies for the core application.
type Config struct {
	Store  store.Store
	Hasher *auth.Hasher
	Tokens *token.Service
}

// App executes validated operations against the store.
type App struct {
	store  store.Store
	hasher *auth.Hasher
	tokens *token.Service
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token service is required")
	}
	return &App{store: cfg.Store, hasher: cfg.Hasher, tokens: cfg.Tokens}, nil
}

// Register creates an account and issues a token for it. The credential
// is stored only as a bcrypt digest.
func (a *App) Register(p validate.RegisterPayload) (domain.User, string, error) {
	digest, err := a.hasher.Hash(p.Senha)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{Name: p.Name, Email: p.Email, SenhaHash: digest}
	if err := a.store.CreateUser(&user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, "", ErrEmailTaken
		}
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	raw, err := a.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, raw, nil
}

// Login verifies credentials and issues a token. An unknown email burns
// a dummy bcrypt comparison so the failure costs the same as a wrong
// password.
func (a *App) Login(p validate.LoginPayload) (domain.User, string, error) {
	user, ok, err := a.store.GetUserByEmail(p.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		a.hasher.CheckDummy(p.Senha)
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !a.hasher.Check(p.Senha, user.SenhaHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	raw, err := a.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, raw, nil
}

// ListUsers returns all accounts.
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// UpdateUser lets an authenticated caller modify their own account. The
// ownership check runs before any store read, so a caller probing
// another id learns nothing about its existence. A supplied senha is
// re-hashed.
func (a *App) UpdateUser(actorID, id uint, p validate.UserUpdatePayload) (domain.User, error) {
	if actorID != id {
		return domain.User{}, ErrNotAccountOwner
	}
	upd := store.UserUpdate{Name: &p.Name, Email: &p.Email}
	if p.Senha != nil {
		digest, err := a.hasher.Hash(*p.Senha)
		if err != nil {
			return domain.User{}, err
		}
		upd.SenhaHash = &digest
	}
	affected, err := a.store.UpdateUser(id, upd)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return domain.User{}, ErrUserNotFound
	}
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes an account. Reviews referencing it are not guarded;
// this mirrors the observed behavior of the system being reimplemented.
func (a *App) DeleteUser(id uint) error {
	deleted, err := a.store.DeleteUser(id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return ErrUserNotFound
	}
	return nil
}

// CreateBook adds a catalog entry.
func (a *App) CreateBook(p validate.BookPayload) (domain.Book, error) {
	book := domain.Book{Title: p.Title, Author: p.Author, ISBN: p.ISBN}
	if p.Genre != nil {
		book.Genre = *p.Genre
	}
	if err := a.store.CreateBook(&book); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Book{}, ErrISBNTaken
		}
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

// GetBook fetches one book.
func (a *App) GetBook(id uint) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// ListBooks returns the whole catalog.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// UpdateBook replaces a book's fields. An absent genero leaves the
// stored value unchanged.
func (a *App) UpdateBook(id uint, p validate.BookPayload) (domain.Book, error) {
	upd := store.BookUpdate{Title: &p.Title, Author: &p.Author, ISBN: &p.ISBN, Genre: p.Genre}
	affected, err := a.store.UpdateBook(id, upd)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Book{}, ErrISBNTaken
		}
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	if affected == 0 {
		return domain.Book{}, ErrBookNotFound
	}
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("reload book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// DeleteBook removes a book. The store refuses while dependent reviews
// exist; no cascade, no orphaning.
func (a *App) DeleteBook(id uint) error {
	deleted, err := a.store.DeleteBook(id)
	if err != nil {
		if errors.Is(err, store.ErrBookHasReviews) {
			return ErrBookHasReviews
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if !deleted {
		return ErrBookNotFound
	}
	return nil
}

// CreateReview inserts a review after the store confirms both referenced
// rows exist.
func (a *App) CreateReview(p validate.ReviewPayload) (domain.Review, error) {
	review := domain.Review{
		Title:   p.Title,
		Content: p.Content,
		Rating:  p.Rating,
		BookID:  p.BookID,
		UserID:  p.UserID,
	}
	if err := a.store.CreateReview(&review); err != nil {
		return domain.Review{}, mapReviewRefErr(err)
	}
	return review, nil
}

// CreateReviewForBook is the nested-route variant: the book reference
// comes from the URL path, not the body.
func (a *App) CreateReviewForBook(bookID uint, p validate.ReviewPayload) (domain.Review, error) {
	p.BookID = bookID
	return a.CreateReview(p)
}

// ListReviews returns all reviews.
func (a *App) ListReviews() ([]domain.Review, error) {
	return a.store.ListReviews()
}

// ListReviewsForBook returns one book's reviews, failing when the book
// itself is absent.
func (a *App) ListReviewsForBook(bookID uint) ([]domain.Review, error) {
	if _, err := a.GetBook(bookID); err != nil {
		return nil, err
	}
	return a.store.ListReviewsByBook(bookID)
}

// GetReview fetches one review.
func (a *App) GetReview(id uint) (domain.Review, error) {
	review, ok, err := a.store.GetReview(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("get review: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrReviewNotFound
	}
	return review, nil
}

// GetReviewForBook fetches a review scoped to a book. A review that
// exists under a different book is reported as absent.
func (a *App) GetReviewForBook(bookID, id uint) (domain.Review, error) {
	if _, err := a.GetBook(bookID); err != nil {
		return domain.Review{}, err
	}
	review, err := a.GetReview(id)
	if err != nil {
		return domain.Review{}, err
	}
	if review.BookID != bookID {
		return domain.Review{}, ErrReviewNotFound
	}
	return review, nil
}

// UpdateReview updates a review in place (flat shape: the body may
// re-point both foreign keys).
func (a *App) UpdateReview(id uint, p validate.ReviewPayload) (domain.Review, error) {
	upd := store.ReviewUpdate{
		Title:   &p.Title,
		Content: &p.Content,
		Rating:  &p.Rating,
		BookID:  &p.BookID,
		UserID:  &p.UserID,
	}
	return a.applyReviewUpdate(id, upd)
}

// UpdateReviewForBook updates a review under the nested route; the book
// reference stays the one in the path.
func (a *App) UpdateReviewForBook(bookID, id uint, p validate.ReviewPayload) (domain.Review, error) {
	if _, err := a.GetReviewForBook(bookID, id); err != nil {
		return domain.Review{}, err
	}
	upd := store.ReviewUpdate{
		Title:   &p.Title,
		Content: &p.Content,
		Rating:  &p.Rating,
		UserID:  &p.UserID,
	}
	return a.applyReviewUpdate(id, upd)
}

func (a *App) applyReviewUpdate(id uint, upd store.ReviewUpdate) (domain.Review, error) {
	affected, err := a.store.UpdateReview(id, upd)
	if err != nil {
		return domain.Review{}, mapReviewRefErr(err)
	}
	if affected == 0 {
		return domain.Review{}, ErrReviewNotFound
	}
	review, ok, err := a.store.GetReview(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("reload review: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrReviewNotFound
	}
	return review, nil
}

// DeleteReview removes a review unconditionally.
func (a *App) DeleteReview(id uint) error {
	deleted, err := a.store.DeleteReview(id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if !deleted {
		return ErrReviewNotFound
	}
	return nil
}

// DeleteReviewForBook removes a review scoped to a book.
func (a *App) DeleteReviewForBook(bookID, id uint) error {
	if _, err := a.GetReviewForBook(bookID, id); err != nil {
		return err
	}
	return a.DeleteReview(id)
}

func mapReviewRefErr(err error) error {
	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return ErrBookNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return fmt.Errorf("review write: %w", err)
	}
}
