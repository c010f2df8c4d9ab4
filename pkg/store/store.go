// Package store persists users, books, and reviews. Cross-entity
// integrity rules (review foreign keys must reference existing rows, a
// book cannot be deleted while reviews point at it) are enforced here,
// inside the same transaction as the mutation, so a concurrent delete
// cannot slip between the check and the write.
package store

import (
	"errors"

	"bookshelf/pkg/domain"
)

var (
	// ErrDuplicate is returned when a uniqueness constraint (email, ISBN)
	// would be violated.
	ErrDuplicate = errors.New("duplicate value for unique column")

	// ErrBookNotFound is returned when a referenced book does not exist.
	ErrBookNotFound = errors.New("referenced book not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("referenced user not found")

	// ErrBookHasReviews blocks deletion of a book that still has
	// dependent reviews. There is no cascade.
	ErrBookHasReviews = errors.New("book has dependent reviews")
)

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name      *string
	Email     *string
	SenhaHash *string
}

// BookUpdate is a partial update; nil fields are left unchanged.
type BookUpdate struct {
	Title  *string
	Author *string
	Genre  *string
	ISBN   *string
}

// ReviewUpdate is a partial update; nil fields are left unchanged.
// Setting BookID or UserID re-verifies that the referenced row exists.
type ReviewUpdate struct {
	Title   *string
	Content *string
	Rating  *int
	BookID  *uint
	UserID  *uint
}

// Store defines persistence operations for users, books, and reviews.
// Update methods report the number of affected rows so callers can
// distinguish "not found" from success.
type Store interface {
	// users
	CreateUser(u *domain.User) error
	GetUserByID(id uint) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	UpdateUser(id uint, upd UserUpdate) (int64, error)
	DeleteUser(id uint) (bool, error)

	// books
	CreateBook(b *domain.Book) error
	GetBook(id uint) (domain.Book, bool, error)
	ListBooks() ([]domain.Book, error)
	UpdateBook(id uint, upd BookUpdate) (int64, error)
	DeleteBook(id uint) (bool, error)

	// reviews
	CreateReview(r *domain.Review) error
	GetReview(id uint) (domain.Review, bool, error)
	ListReviews() ([]domain.Review, error)
	ListReviewsByBook(bookID uint) ([]domain.Review, error)
	UpdateReview(id uint, upd ReviewUpdate) (int64, error)
	DeleteReview(id uint) (bool, error)
	CountReviewsByBook(bookID uint) (int64, error)
}
