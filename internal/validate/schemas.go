package validate

import "fmt"

// RegisterPayload is a normalized registration request.
type RegisterPayload struct {
	Name  string
	Email string
	Senha string
}

// Register validates the registration schema: nome, email, senha, all
// required.
func Register(raw map[string]any) (RegisterPayload, []FieldError) {
	c := newChecker(raw, "nome", "email", "senha")
	var p RegisterPayload
	p.Name, _ = c.requireString("nome", 1)
	p.Email, _ = c.requireEmail("email")
	p.Senha, _ = c.requireString("senha", 6)
	c.rejectUnknown()
	return p, c.errs
}

// LoginPayload is a normalized login request.
type LoginPayload struct {
	Email string
	Senha string
}

// Login validates the login schema: email and senha, both required.
func Login(raw map[string]any) (LoginPayload, []FieldError) {
	c := newChecker(raw, "email", "senha")
	var p LoginPayload
	p.Email, _ = c.requireEmail("email")
	p.Senha, _ = c.requireString("senha", 6)
	c.rejectUnknown()
	return p, c.errs
}

// UserUpdatePayload is a normalized self-update request. Senha is nil
// when the credential is to be kept unchanged.
type UserUpdatePayload struct {
	Name  string
	Email string
	Senha *string
}

// UserUpdate validates the self-update schema: nome and email required,
// senha optional.
func UserUpdate(raw map[string]any) (UserUpdatePayload, []FieldError) {
	c := newChecker(raw, "nome", "email", "senha")
	var p UserUpdatePayload
	p.Name, _ = c.requireString("nome", 1)
	p.Email, _ = c.requireEmail("email")
	p.Senha, _ = c.optionalString("senha", 6)
	c.rejectUnknown()
	return p, c.errs
}

// BookPayload is a normalized book create/update request.
type BookPayload struct {
	Title  string
	Author string
	Genre  *string
	ISBN   string
}

// Book validates the book schema: titulo, autor, isbn required, genero
// optional. ISBN only requires three characters; it is not a checksum.
func Book(raw map[string]any) (BookPayload, []FieldError) {
	c := newChecker(raw, "titulo", "autor", "genero", "isbn")
	var p BookPayload
	p.Title, _ = c.requireString("titulo", 1)
	p.Author, _ = c.requireString("autor", 1)
	p.Genre, _ = c.optionalString("genero", 1)
	p.ISBN, _ = c.requireString("isbn", 3)
	c.rejectUnknown()
	return p, c.errs
}

// ReviewPayload is a normalized review create/update request. BookID is
// zero for the nested shape until the handler fills it from the path.
type ReviewPayload struct {
	Title   string
	Content string
	Rating  int
	BookID  uint
	UserID  uint
}

// ReviewFlat validates the flat review shape, where the book reference
// arrives in the body.
func ReviewFlat(raw map[string]any) (ReviewPayload, []FieldError) {
	c := newChecker(raw, "titulo", "conteudo", "nota", "livro_id", "usuario_id")
	p := reviewCommon(c)
	p.BookID, _ = c.requireID("livro_id")
	c.rejectUnknown()
	return p, c.errs
}

// ReviewNested validates the nested review shape: the book reference is
// mandatory in the URL path and therefore forbidden in the body.
func ReviewNested(raw map[string]any) (ReviewPayload, []FieldError) {
	c := newChecker(raw, "titulo", "conteudo", "nota", "usuario_id")
	p := reviewCommon(c)
	c.rejectUnknown()
	return p, c.errs
}

func reviewCommon(c *checker) ReviewPayload {
	var p ReviewPayload
	p.Title, _ = c.requireString("titulo", 1)
	p.Content, _ = c.requireString("conteudo", 1)
	if n, ok := c.requireInt("nota"); ok {
		if n < 1 || n > 5 {
			c.fail("nota", "range", "deve estar entre 1 e 5")
		} else {
			p.Rating = int(n)
		}
	}
	p.UserID, _ = c.requireID("usuario_id")
	return p
}

// requireID returns the field as a positive integer identifier.
func (c *checker) requireID(field string) (uint, bool) {
	n, ok := c.requireInt(field)
	if !ok {
		return 0, false
	}
	if n <= 0 {
		c.fail(field, "range", fmt.Sprintf("deve ser um identificador positivo, recebido %d", n))
		return 0, false
	}
	return uint(n), true
}
