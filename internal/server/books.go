package server

import (
	"net/http"

	"bookshelf/internal/app"
	"bookshelf/internal/validate"
)

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.Book(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para livro", defects)
		return
	}
	book, err := s.app.CreateBook(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.ListBooks()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrBookNotFound)
		return
	}
	book, err := s.app.GetBook(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrBookNotFound)
		return
	}
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.Book(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para livro", defects)
		return
	}
	book, err := s.app.UpdateBook(id, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrBookNotFound)
		return
	}
	if err := s.app.DeleteBook(id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
