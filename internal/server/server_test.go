package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"bookshelf/internal/app"
	"bookshelf/internal/metrics"
	"bookshelf/internal/ratelimit"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/store"
	"bookshelf/pkg/token"
)

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	tokens, err := token.NewService("test-secret", time.Hour, token.Options{})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	core, err := app.New(app.Config{
		Store:  store.NewMemoryStore(),
		Hasher: auth.NewHasher(bcrypt.MinCost),
		Tokens: tokens,
	})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	cfg.App = core
	cfg.Tokens = tokens
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerUser(t *testing.T, h http.Handler, nome, email string) (id uint, bearer string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
		"nome": nome, "email": email, "senha": "segredo123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	user := out["usuario"].(map[string]any)
	return uint(user["id"].(float64)), out["token"].(string)
}

func TestAccountLifecycle(t *testing.T) {
	h := newTestHandler(t, Config{})

	rec := doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
		"nome": "Ana", "email": "ana@exemplo.com", "senha": "segredo123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("senha")) {
		t.Fatalf("credential leaked in response: %s", rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["token"] == "" {
		t.Fatalf("expected a token in the registration response")
	}

	// same email again
	rec = doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
		"nome": "Ana Clone", "email": "ana@exemplo.com", "senha": "outrasenha",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["erro"]; got != "E-mail já cadastrado" {
		t.Fatalf("duplicate email message: %v", got)
	}

	rec = doJSON(t, h, http.MethodPost, "/usuarios/login", "", map[string]any{
		"email": "ana@exemplo.com", "senha": "segredo123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}

	// wrong password and unknown email share one message
	rec = doJSON(t, h, http.MethodPost, "/usuarios/login", "", map[string]any{
		"email": "ana@exemplo.com", "senha": "senhaerrada",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", rec.Code)
	}
	wrongPass := decodeMap(t, rec)["erro"]
	rec = doJSON(t, h, http.MethodPost, "/usuarios/login", "", map[string]any{
		"email": "ninguem@exemplo.com", "senha": "qualquercoisa",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: status %d", rec.Code)
	}
	if unknown := decodeMap(t, rec)["erro"]; unknown != wrongPass {
		t.Fatalf("login failures must be indistinguishable: %v vs %v", wrongPass, unknown)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestHandler(t, Config{})

	rec := doJSON(t, h, http.MethodGet, "/livros", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/livros", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/livros", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer scheme: status %d", rr.Code)
	}
}

func TestSelfOnlyUserUpdate(t *testing.T) {
	h := newTestHandler(t, Config{})
	anaID, anaToken := registerUser(t, h, "Ana", "ana@exemplo.com")
	brunoID, _ := registerUser(t, h, "Bruno", "bruno@exemplo.com")

	rec := doJSON(t, h, http.MethodPut, fmt.Sprintf("/usuarios/%d", brunoID), anaToken, map[string]any{
		"nome": "Bruno Editado", "email": "bruno@exemplo.com",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("editing another account: status %d body %s", rec.Code, rec.Body.String())
	}

	// same status for a target that does not exist
	rec = doJSON(t, h, http.MethodPut, "/usuarios/9999", anaToken, map[string]any{
		"nome": "Fantasma", "email": "fantasma@exemplo.com",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("probing an absent account: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/usuarios/%d", anaID), anaToken, map[string]any{
		"nome": "Ana Atualizada", "email": "ana@exemplo.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("self update: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["nome"]; got != "Ana Atualizada" {
		t.Fatalf("updated name: %v", got)
	}
}

func TestBookAndReviewFlow(t *testing.T) {
	h := newTestHandler(t, Config{})
	anaID, bearer := registerUser(t, h, "Ana", "ana@exemplo.com")

	rec := doJSON(t, h, http.MethodPost, "/livros", bearer, map[string]any{
		"titulo": "Grande Sertão: Veredas", "autor": "Guimarães Rosa", "isbn": "978-85-209-3325-5",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: status %d body %s", rec.Code, rec.Body.String())
	}
	bookID := uint(decodeMap(t, rec)["id"].(float64))

	// out-of-range rating is refused before any write
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/livros/%d/resenhas", bookID), bearer, map[string]any{
		"titulo": "Nota impossível", "conteudo": "...", "nota": 6, "usuario_id": anaID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nota 6: status %d body %s", rec.Code, rec.Body.String())
	}

	// nested shape refuses livro_id in the body
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/livros/%d/resenhas", bookID), bearer, map[string]any{
		"titulo": "Duplicado", "conteudo": "...", "nota": 4, "usuario_id": anaID, "livro_id": bookID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("livro_id in nested body: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/livros/%d/resenhas", bookID), bearer, map[string]any{
		"titulo": "Obra-prima", "conteudo": "Releitura obrigatória.", "nota": 5, "usuario_id": anaID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review: status %d body %s", rec.Code, rec.Body.String())
	}
	review := decodeMap(t, rec)
	reviewID := uint(review["id"].(float64))
	if uint(review["livro_id"].(float64)) != bookID {
		t.Fatalf("review book reference: %v", review["livro_id"])
	}

	// the dependent review blocks deletion
	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/livros/%d", bookID), bearer, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete book with review: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/livros/%d/resenhas/%d", bookID, reviewID), bearer, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete review: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/livros/%d", bookID), bearer, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete book after review removed: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestFlatReviewRoutes(t *testing.T) {
	h := newTestHandler(t, Config{})
	anaID, bearer := registerUser(t, h, "Ana", "ana@exemplo.com")

	rec := doJSON(t, h, http.MethodPost, "/livros", bearer, map[string]any{
		"titulo": "Vidas Secas", "autor": "Graciliano Ramos", "isbn": "978-85-01-00001-1",
	})
	bookID := uint(decodeMap(t, rec)["id"].(float64))

	// the flat shape names an absent book
	rec = doJSON(t, h, http.MethodPost, "/resenhas", bearer, map[string]any{
		"titulo": "Órfã", "conteudo": "...", "nota": 3, "livro_id": 9999, "usuario_id": anaID,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("review for absent book: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["erro"]; got != "Livro não encontrado" {
		t.Fatalf("absent book message: %v", got)
	}

	rec = doJSON(t, h, http.MethodPost, "/resenhas", bearer, map[string]any{
		"titulo": "Seca e fome", "conteudo": "Prosa enxuta.", "nota": 5, "livro_id": bookID, "usuario_id": anaID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("flat create: status %d body %s", rec.Code, rec.Body.String())
	}
	reviewID := uint(decodeMap(t, rec)["id"].(float64))

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/resenhas/%d", reviewID), bearer, map[string]any{
		"titulo": "Seca e fome", "conteudo": "Prosa enxuta, revista.", "nota": 4, "livro_id": bookID, "usuario_id": anaID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("flat update: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["nota"].(float64); got != 4 {
		t.Fatalf("updated nota: %v", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/resenhas", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("flat list: status %d", rec.Code)
	}
}

func TestNestedReviewScoping(t *testing.T) {
	h := newTestHandler(t, Config{})
	anaID, bearer := registerUser(t, h, "Ana", "ana@exemplo.com")

	var bookIDs [2]uint
	for i, isbn := range []string{"978-0-0000-0001-1", "978-0-0000-0002-2"} {
		rec := doJSON(t, h, http.MethodPost, "/livros", bearer, map[string]any{
			"titulo": fmt.Sprintf("Livro %d", i+1), "autor": "Autor", "isbn": isbn,
		})
		bookIDs[i] = uint(decodeMap(t, rec)["id"].(float64))
	}
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/livros/%d/resenhas", bookIDs[0]), bearer, map[string]any{
		"titulo": "Do primeiro", "conteudo": "...", "nota": 3, "usuario_id": anaID,
	})
	reviewID := uint(decodeMap(t, rec)["id"].(float64))

	// visible under its own book, absent under the other
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/livros/%d/resenhas/%d", bookIDs[0], reviewID), bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own book: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/livros/%d/resenhas/%d", bookIDs[1], reviewID), bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("other book: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestNonNumericIDBehavesAsNotFound(t *testing.T) {
	h := newTestHandler(t, Config{})
	_, bearer := registerUser(t, h, "Ana", "ana@exemplo.com")

	rec := doJSON(t, h, http.MethodGet, "/livros/abc", bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric book id: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["erro"]; got != "Livro não encontrado" {
		t.Fatalf("non-numeric id message: %v", got)
	}
}

func TestValidationRejectsUnknownFields(t *testing.T) {
	h := newTestHandler(t, Config{})

	rec := doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
		"nome": "Ana", "email": "ana@exemplo.com", "senha": "segredo123", "admin": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["erro"] != "Dados inválidos para cadastro" {
		t.Fatalf("validation message: %v", out["erro"])
	}
	if _, ok := out["detalhes"].([]any); !ok {
		t.Fatalf("expected field defects in detalhes: %s", rec.Body.String())
	}
}

func TestRegisterRateLimit(t *testing.T) {
	h := newTestHandler(t, Config{RegisterLimiter: ratelimit.New(2)})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
			"nome": "Ana", "email": fmt.Sprintf("ana%d@exemplo.com", i), "senha": "segredo123",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(t, h, http.MethodPost, "/usuarios", "", map[string]any{
		"nome": "Ana", "email": "ana9@exemplo.com", "senha": "segredo123",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over quota: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestHandler(t, Config{Metrics: metrics.NewCollector(reg), Gatherer: reg})

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("bookshelf_http_requests_total")) {
		t.Fatalf("request counter missing from scrape: %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, Config{CORSOrigin: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/livros", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin: %q", got)
	}
}
