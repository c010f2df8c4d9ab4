package domain

// User is a registered account. The password digest never leaves the
// process: it is excluded from every JSON response.
type User struct {
	ID        uint   `json:"id"`
	Name      string `json:"nome"`
	Email     string `json:"email"`
	SenhaHash string `json:"-"`
}

// Book is a catalog entry. ISBN is globally unique; the three character
// minimum is deliberately permissive and is not a checksum.
type Book struct {
	ID     uint   `json:"id"`
	Title  string `json:"titulo"`
	Author string `json:"autor"`
	Genre  string `json:"genero,omitempty"`
	ISBN   string `json:"isbn"`
}

// Review ties exactly one Book and one User together. Rating is an
// integer in [1,5]. A user may post multiple reviews for the same book.
type Review struct {
	ID      uint   `json:"id"`
	Title   string `json:"titulo"`
	Content string `json:"conteudo"`
	Rating  int    `json:"nota"`
	BookID  uint   `json:"livro_id"`
	UserID  uint   `json:"usuario_id"`
}
