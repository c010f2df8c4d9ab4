package server

import (
	"net/http"

	"bookshelf/internal/app"
	"bookshelf/internal/validate"
	"bookshelf/pkg/domain"
)

type sessionResponse struct {
	User  domain.User `json:"usuario"`
	Token string      `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.Register(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para cadastro", defects)
		return
	}
	user, signed, err := s.app.Register(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: signed})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.Login(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para login", defects)
		return
	}
	user, signed, err := s.app.Login(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: signed})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.app.ListUsers()
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrUserNotFound)
		return
	}
	raw, ok := decodeBody(w, r)
	if !ok {
		return
	}
	payload, defects := validate.UserUpdate(raw)
	if len(defects) > 0 {
		writeDefects(w, "Dados inválidos para atualizar usuário", defects)
		return
	}
	claims, ok := claimsFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token não fornecido")
		return
	}
	user, err := s.app.UpdateUser(claims.UserID, id, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, app.ErrUserNotFound)
		return
	}
	if err := s.app.DeleteUser(id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
