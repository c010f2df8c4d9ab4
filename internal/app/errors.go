package app

import "errors"

// Sentinel errors of the application core. Messages are client-facing;
// the HTTP layer maps each one to a status code.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The message is intentionally identical for both so handlers cannot
	// enable account enumeration.
	ErrInvalidCredentials = errors.New("Credenciais inválidas")

	ErrEmailTaken = errors.New("E-mail já cadastrado")
	ErrISBNTaken  = errors.New("ISBN já cadastrado")

	ErrUserNotFound   = errors.New("Usuário não encontrado")
	ErrBookNotFound   = errors.New("Livro não encontrado")
	ErrReviewNotFound = errors.New("Resenha não encontrada")

	// ErrBookHasReviews blocks deletion of a book with dependent reviews.
	ErrBookHasReviews = errors.New("Não é possível excluir livro com resenhas vinculadas")

	// ErrNotAccountOwner is an authorization failure, distinct from "not
	// found": it is returned before any lookup so it never leaks whether
	// the target account exists.
	ErrNotAccountOwner = errors.New("Você não pode editar outro usuário")
)
