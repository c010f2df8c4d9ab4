package app

import (
	"errors"
	"testing"
	"time"

	"bookshelf/internal/validate"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/store"
	"bookshelf/pkg/token"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	tokens, err := token.NewService("test-secret", time.Hour, token.Options{})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	a, err := New(Config{
		Store:  store.NewMemoryStore(),
		Hasher: auth.NewHasher(4),
		Tokens: tokens,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func register(t *testing.T, a *App, name, email string) uint {
	t.Helper()
	user, _, err := a.Register(validate.RegisterPayload{Name: name, Email: email, Senha: "abcdef"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user.ID
}

func TestRegisterHashesAndIssuesToken(t *testing.T) {
	a := newTestApp(t)

	user, raw, err := a.Register(validate.RegisterPayload{Name: "Ana", Email: "a@b.com", Senha: "abcdef"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if raw == "" {
		t.Fatalf("expected a token")
	}
	if user.SenhaHash == "abcdef" {
		t.Fatalf("credential must be stored hashed")
	}

	claims, err := a.tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != "a@b.com" || claims.Name != "Ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "Ana", "a@b.com")

	_, _, err := a.Register(validate.RegisterPayload{Name: "Bia", Email: "a@b.com", Senha: "abcdef"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "Ana", "a@b.com")

	_, _, errWrong := a.Login(validate.LoginPayload{Email: "a@b.com", Senha: "errada!"})
	_, _, errUnknown := a.Login(validate.LoginPayload{Email: "x@y.com", Senha: "errada!"})
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrong)
	}
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("messages differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestLoginSuccess(t *testing.T) {
	a := newTestApp(t)
	id := register(t, a, "Ana", "a@b.com")

	user, raw, err := a.Login(validate.LoginPayload{Email: "a@b.com", Senha: "abcdef"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != id || raw == "" {
		t.Fatalf("unexpected login result: id=%d token=%q", user.ID, raw)
	}
}

func TestUpdateUserSelfOnly(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")
	bia := register(t, a, "Bia", "b@b.com")

	_, err := a.UpdateUser(ana, bia, validate.UserUpdatePayload{Name: "Hacked", Email: "h@b.com"})
	if !errors.Is(err, ErrNotAccountOwner) {
		t.Fatalf("expected ErrNotAccountOwner, got %v", err)
	}

	// The answer is identical when the target does not exist at all.
	_, errMissing := a.UpdateUser(ana, 9999, validate.UserUpdatePayload{Name: "X", Email: "x@b.com"})
	if !errors.Is(errMissing, ErrNotAccountOwner) {
		t.Fatalf("missing target must not be distinguishable, got %v", errMissing)
	}
}

func TestUpdateUserRehashesSenha(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")

	nova := "novasenha"
	updated, err := a.UpdateUser(ana, ana, validate.UserUpdatePayload{Name: "Ana Maria", Email: "a@b.com", Senha: &nova})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Ana Maria" {
		t.Fatalf("name not updated: %+v", updated)
	}

	if _, _, err := a.Login(validate.LoginPayload{Email: "a@b.com", Senha: "abcdef"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old senha must stop working, got %v", err)
	}
	if _, _, err := a.Login(validate.LoginPayload{Email: "a@b.com", Senha: "novasenha"}); err != nil {
		t.Fatalf("new senha must work: %v", err)
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")
	register(t, a, "Bia", "b@b.com")

	_, err := a.UpdateUser(ana, ana, validate.UserUpdatePayload{Name: "Ana", Email: "b@b.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestBookLifecycleWithDependencyGuard(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")

	book, err := a.CreateBook(validate.BookPayload{Title: "X", Author: "Y", ISBN: "123"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	review, err := a.CreateReviewForBook(book.ID, validate.ReviewPayload{Title: "ok", Content: "nice", Rating: 5, UserID: ana})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	if err := a.DeleteBook(book.ID); !errors.Is(err, ErrBookHasReviews) {
		t.Fatalf("expected ErrBookHasReviews, got %v", err)
	}
	if _, err := a.GetBook(book.ID); err != nil {
		t.Fatalf("book must survive a blocked delete: %v", err)
	}

	if err := a.DeleteReviewForBook(book.ID, review.ID); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	if err := a.DeleteBook(book.ID); err != nil {
		t.Fatalf("delete book after reviews gone: %v", err)
	}
}

func TestCreateReviewNamesMissingEntity(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")
	book, err := a.CreateBook(validate.BookPayload{Title: "X", Author: "Y", ISBN: "123"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	_, err = a.CreateReview(validate.ReviewPayload{Title: "t", Content: "c", Rating: 3, BookID: 999, UserID: ana})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
	_, err = a.CreateReview(validate.ReviewPayload{Title: "t", Content: "c", Rating: 3, BookID: book.ID, UserID: 999})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	reviews, err := a.ListReviewsForBook(book.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 0 {
		t.Fatalf("no review may exist after failed creates, got %d", len(reviews))
	}
}

func TestNestedReviewScoping(t *testing.T) {
	a := newTestApp(t)
	ana := register(t, a, "Ana", "a@b.com")
	first, err := a.CreateBook(validate.BookPayload{Title: "X", Author: "Y", ISBN: "123"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	second, err := a.CreateBook(validate.BookPayload{Title: "Z", Author: "W", ISBN: "456"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	review, err := a.CreateReviewForBook(first.ID, validate.ReviewPayload{Title: "ok", Content: "nice", Rating: 2, UserID: ana})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	if _, err := a.GetReviewForBook(second.ID, review.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("review under another book must be absent, got %v", err)
	}
	if _, err := a.GetReviewForBook(999, review.ID); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("missing book must be named, got %v", err)
	}

	updated, err := a.UpdateReviewForBook(first.ID, review.ID, validate.ReviewPayload{Title: "melhor", Content: "muito bom", Rating: 5, UserID: ana})
	if err != nil {
		t.Fatalf("update nested review: %v", err)
	}
	if updated.Rating != 5 || updated.BookID != first.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestRoundTripReadsBack(t *testing.T) {
	a := newTestApp(t)
	genre := "Romance"
	book, err := a.CreateBook(validate.BookPayload{Title: "Dom Casmurro", Author: "Machado", Genre: &genre, ISBN: "978-85"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	got, err := a.GetBook(book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got != book {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, book)
	}
}
