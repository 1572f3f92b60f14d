package server

import (
	"errors"
	"net/http"

	"todo-chat/internal/auth"
	"todo-chat/internal/logger"
	"todo-chat/internal/manager"
	"todo-chat/internal/models"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func signupHandler(users *manager.UserManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		err := users.Signup(r.Context(), req.Username, req.Email, req.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
		case errors.Is(err, manager.ErrUsernameTaken), errors.Is(err, manager.ErrEmailTaken),
			errors.Is(err, models.ErrUsernameTooShort), errors.Is(err, models.ErrInvalidEmail),
			errors.Is(err, models.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Error(r.Context(), err, "Ошибка регистрации", "user", req.Username)
			writeError(w, http.StatusInternalServerError, "Signup error")
		}
	}
}

func loginHandler(users *manager.UserManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		token, err := users.Login(r.Context(), req.Username, req.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{
				"token":    token,
				"username": req.Username,
				"message":  "Login successful",
			})
		case errors.Is(err, auth.ErrBadPassword):
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
		default:
			logger.Error(r.Context(), err, "Ошибка входа", "user", req.Username)
			writeError(w, http.StatusInternalServerError, "Login error")
		}
	}
}

func verifyHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"valid":    true,
	})
}
