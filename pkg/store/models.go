package store

// GORM models used for persistence. Table and column names follow the
// original relational schema (usuarios, livros, resenhas).
type UserModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"column:nome;size:120;not null"`
	Email     string `gorm:"size:120;uniqueIndex;not null"`
	SenhaHash string `gorm:"column:senha;size:120;not null"`
}

func (UserModel) TableName() string { return "usuarios" }

type BookModel struct {
	ID     uint   `gorm:"primaryKey"`
	Title  string `gorm:"column:titulo;size:200;not null"`
	Author string `gorm:"column:autor;size:120;not null"`
	Genre  string `gorm:"column:genero;size:80"`
	ISBN   string `gorm:"column:isbn;size:30;uniqueIndex;not null"`
}

func (BookModel) TableName() string { return "livros" }

type ReviewModel struct {
	ID      uint   `gorm:"primaryKey"`
	Title   string `gorm:"column:titulo;size:200;not null"`
	Content string `gorm:"column:conteudo;type:text;not null"`
	Rating  int    `gorm:"column:nota;not null"`
	BookID  uint   `gorm:"column:livro_id;not null;index"`
	UserID  uint   `gorm:"column:usuario_id;not null;index"`
}

func (ReviewModel) TableName() string { return "resenhas" }
