package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bookshelf/pkg/domain"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a Postgres connection and runs migrations once,
// before any traffic is served.
func NewGormStore(dsn string) (*GormStore, error) {
	return OpenGormStore(postgres.Open(dsn))
}

// OpenGormStore opens the given dialector and runs migrations. Tests use
// it with an in-memory SQLite database.
func OpenGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user and fills in the generated ID.
func (s *GormStore) CreateUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Create(&model).Error; err != nil {
		return translateErr(err)
	}
	u.ID = model.ID
	return nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email, byte-wise as stored.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by ID.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UpdateUser applies a partial update and reports affected rows.
func (s *GormStore) UpdateUser(id uint, upd UserUpdate) (int64, error) {
	fields := map[string]any{}
	if upd.Name != nil {
		fields["nome"] = *upd.Name
	}
	if upd.Email != nil {
		fields["email"] = *upd.Email
	}
	if upd.SenhaHash != nil {
		fields["senha"] = *upd.SenhaHash
	}
	if len(fields) == 0 {
		return 0, nil
	}
	tx := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return 0, translateErr(tx.Error)
	}
	return tx.RowsAffected, nil
}

// DeleteUser removes a user. Dependent reviews are deliberately left in
// place (observed behavior of the system being reimplemented).
func (s *GormStore) DeleteUser(id uint) (bool, error) {
	tx := s.db.Delete(&UserModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CreateBook inserts a book and fills in the generated ID.
func (s *GormStore) CreateBook(b *domain.Book) error {
	model := bookToModel(*b)
	if err := s.db.Create(&model).Error; err != nil {
		return translateErr(err)
	}
	b.ID = model.ID
	return nil
}

// GetBook retrieves a book by ID.
func (s *GormStore) GetBook(id uint) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all books ordered by ID.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// UpdateBook applies a partial update and reports affected rows.
func (s *GormStore) UpdateBook(id uint, upd BookUpdate) (int64, error) {
	fields := map[string]any{}
	if upd.Title != nil {
		fields["titulo"] = *upd.Title
	}
	if upd.Author != nil {
		fields["autor"] = *upd.Author
	}
	if upd.Genre != nil {
		fields["genero"] = *upd.Genre
	}
	if upd.ISBN != nil {
		fields["isbn"] = *upd.ISBN
	}
	if len(fields) == 0 {
		return 0, nil
	}
	tx := s.db.Model(&BookModel{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return 0, translateErr(tx.Error)
	}
	return tx.RowsAffected, nil
}

// DeleteBook removes a book unless reviews still reference it. The
// dependency count and the delete run in one transaction so a review
// created concurrently cannot be orphaned.
func (s *GormStore) DeleteBook(id uint) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ReviewModel{}).Where("livro_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrBookHasReviews
		}
		res := tx.Delete(&BookModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// CreateReview verifies both referenced rows exist and inserts the
// review, all inside one transaction.
func (s *GormStore) CreateReview(r *domain.Review) error {
	model := reviewToModel(*r)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &BookModel{}, model.BookID, ErrBookNotFound); err != nil {
			return err
		}
		if err := requireRow(tx, &UserModel{}, model.UserID, ErrUserNotFound); err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return err
	}
	r.ID = model.ID
	return nil
}

// GetReview retrieves a review by ID.
func (s *GormStore) GetReview(id uint) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// ListReviews returns all reviews ordered by ID.
func (s *GormStore) ListReviews() ([]domain.Review, error) {
	return s.listReviews()
}

// ListReviewsByBook returns the reviews referencing one book.
func (s *GormStore) ListReviewsByBook(bookID uint) ([]domain.Review, error) {
	return s.listReviews("livro_id = ?", bookID)
}

func (s *GormStore) listReviews(conds ...any) ([]domain.Review, error) {
	var models []ReviewModel
	tx := s.db.Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

// UpdateReview applies a partial update. When the update re-points a
// foreign key, the referenced row is verified in the same transaction.
func (s *GormStore) UpdateReview(id uint, upd ReviewUpdate) (int64, error) {
	fields := map[string]any{}
	if upd.Title != nil {
		fields["titulo"] = *upd.Title
	}
	if upd.Content != nil {
		fields["conteudo"] = *upd.Content
	}
	if upd.Rating != nil {
		fields["nota"] = *upd.Rating
	}
	if upd.BookID != nil {
		fields["livro_id"] = *upd.BookID
	}
	if upd.UserID != nil {
		fields["usuario_id"] = *upd.UserID
	}
	if len(fields) == 0 {
		return 0, nil
	}
	var affected int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if upd.BookID != nil {
			if err := requireRow(tx, &BookModel{}, *upd.BookID, ErrBookNotFound); err != nil {
				return err
			}
		}
		if upd.UserID != nil {
			if err := requireRow(tx, &UserModel{}, *upd.UserID, ErrUserNotFound); err != nil {
				return err
			}
		}
		res := tx.Model(&ReviewModel{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// DeleteReview removes a review unconditionally.
func (s *GormStore) DeleteReview(id uint) (bool, error) {
	tx := s.db.Delete(&ReviewModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CountReviewsByBook counts reviews referencing one book.
func (s *GormStore) CountReviewsByBook(bookID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&ReviewModel{}).Where("livro_id = ?", bookID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func requireRow(tx *gorm.DB, model any, id uint, missing error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return missing
	}
	return nil
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func userToModel(u domain.User) UserModel {
	return UserModel{ID: u.ID, Name: u.Name, Email: u.Email, SenhaHash: u.SenhaHash}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email, SenhaHash: m.SenhaHash}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{ID: b.ID, Title: b.Title, Author: b.Author, Genre: b.Genre, ISBN: b.ISBN}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{ID: m.ID, Title: m.Title, Author: m.Author, Genre: m.Genre, ISBN: m.ISBN}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{ID: r.ID, Title: r.Title, Content: r.Content, Rating: r.Rating, BookID: r.BookID, UserID: r.UserID}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{ID: m.ID, Title: m.Title, Content: m.Content, Rating: m.Rating, BookID: m.BookID, UserID: m.UserID}
}
