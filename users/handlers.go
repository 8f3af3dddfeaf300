// This file handles the HTTP surface for the user endpoints. It stays a thin
// adapter: decode, delegate to the service, map the result or error.
package users

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/credstore-go/apperror"
)

// Handlers wraps the Service to provide HTTP handlers.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleRegister godoc
// @Summary Register a new user
// @Description Validates the registration payload, hashes the password, and stores the user.
// @Tags Users
// @Accept json
// @Produce json
// @Param registerBody body users.RegisterRequest true "User registration details"
// @Success 201 {object} users.MessageResponse "User registered successfully"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input, with per-field detail"
// @Failure 409 {object} apperror.ErrorResponse "Email already registered"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		if _, err := h.service.Register(r.Context(), req); err != nil {
			WriteError(w, r, err)
			return
		}

		// Confirmation only: no id echo, no hash, no plaintext.
		writeJSON(w, http.StatusCreated, MessageResponse{Message: "user registered successfully"})
	}
}

// HandleLogin godoc
// @Summary Verify login credentials
// @Description Checks the supplied email/password pair against the stored credential record.
// @Tags Users
// @Accept json
// @Produce json
// @Param loginBody body users.LoginRequest true "User login credentials"
// @Success 200 {object} users.MessageResponse "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Malformed request body"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		if err := h.service.Login(r.Context(), req); err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "login successful"})
	}
}

// HandleList godoc
// @Summary List users
// @Description Returns the non-secret view of every user, in insertion order.
// @Tags Users
// @Produce json
// @Success 200 {array} users.UserResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users [get]
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := h.service.List(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// HandleGetByID godoc
// @Summary Get a user by id
// @Description Returns the non-secret view of a single user.
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} users.UserResponse
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users/{id} [get]
func (h *Handlers) HandleGetByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		view, err := h.service.GetByID(r.Context(), id)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// writeJSON serializes `data` to JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError converts any error into a standardized apperror response.
// Server-side failures keep their full detail in the log; the response body
// stays generic.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Printf("request %s %s failed: %v", r.Method, r.URL.Path, appErr)
	}

	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
