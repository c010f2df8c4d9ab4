package server

import (
	"net/http"

	"bookshelf/internal/app"
	"bookshelf/internal/validate"
)

// flat routes: the book reference travels in the body

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.ReviewFlat(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para resenha", defects)
		return
	}
	review, err := s.app.CreateReview(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.app.ListReviews()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	review, err := s.app.GetReview(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.ReviewFlat(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para resenha", defects)
		return
	}
	review, err := s.app.UpdateReview(id, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	if err := s.app.DeleteReview(id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nested routes: the book reference comes from the path and is
// forbidden in the body

func (s *Server) handleCreateReviewForBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(r, "livro_id")
	if !ok {
		respondError(w, r, app.ErrBookNotFound)
		return
	}
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.ReviewNested(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para resenha", defects)
		return
	}
	review, err := s.app.CreateReviewForBook(bookID, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListReviewsForBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(r, "livro_id")
	if !ok {
		respondError(w, r, app.ErrBookNotFound)
		return
	}
	reviews, err := s.app.ListReviewsForBook(bookID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleGetReviewForBook(w http.ResponseWriter, r *http.Request) {
	bookID, id, ok := nestedIDs(r)
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	review, err := s.app.GetReviewForBook(bookID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleUpdateReviewForBook(w http.ResponseWriter, r *http.Request) {
	bookID, id, ok := nestedIDs(r)
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.ReviewNested(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para resenha", defects)
		return
	}
	review, err := s.app.UpdateReviewForBook(bookID, id, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReviewForBook(w http.ResponseWriter, r *http.Request) {
	bookID, id, ok := nestedIDs(r)
	if !ok {
		respondError(w, r, app.ErrReviewNotFound)
		return
	}
	if err := s.app.DeleteReviewForBook(bookID, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nestedIDs(r *http.Request) (bookID, id uint, ok bool) {
	bookID, ok = pathID(r, "livro_id")
	if !ok {
		return 0, 0, false
	}
	id, ok = pathID(r, "id")
	if !ok {
		return 0, 0, false
	}
	return bookID, id, true
}
