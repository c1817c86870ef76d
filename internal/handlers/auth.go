package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/services"
	"github.com/moodloop/moodloop-backend/pkg/clientip"
	"github.com/moodloop/moodloop-backend/pkg/utils"
)

type SignupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	RecoveryEmail string `json:"recovery_email,omitempty"`
}

type SigninRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DeviceToken string `json:"device_token,omitempty"`
}

type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

// Signup handles user registration. Accounts are username-only; a recovery
// email is optional and stored encrypted.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = utils.NormalizeUsername(req.Username)
	if err := utils.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	var existing string
	err := database.PostgresDB.QueryRow(
		"SELECT username FROM users WHERE LOWER(username) = LOWER($1)", req.Username,
	).Scan(&existing)
	if err == nil {
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	} else if err != sql.ErrNoRows {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	userID := uuid.New()
	now := time.Now()

	_, err = database.PostgresDB.Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, req.Username, hashedPassword, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if req.RecoveryEmail != "" {
		encrypted, err := utils.Encrypt(req.RecoveryEmail)
		if err == nil {
			_, err = database.PostgresDB.Exec(`
				INSERT INTO user_recovery (user_id, email_encrypted)
				VALUES ($1, $2)
			`, userID, encrypted)
		}
		if err != nil {
			log.Printf("⚠️ Failed to store recovery email for %s: %v", userID, err)
		}
	}

	token, err := services.CreateSession(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   req.Username,
			"created_at": now,
		},
		Token: token,
	})
}

// Signin handles user login and records the device for support purposes.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	var userID uuid.UUID
	var passwordHash string
	var createdAt time.Time
	var isActive bool
	var avatarURL sql.NullString

	err := database.PostgresDB.QueryRow(`
		SELECT id, password_hash, avatar_url, created_at, is_active
		FROM users WHERE LOWER(username) = LOWER($1)
	`, req.Username).Scan(&userID, &passwordHash, &avatarURL, &createdAt, &isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !isActive {
		writeError(w, http.StatusForbidden, "Account is deactivated")
		return
	}

	token, err := services.CreateSession(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	recordDevice(userID, req.DeviceToken, r)

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   utils.NormalizeUsername(req.Username),
			"avatar_url": avatarURL.String,
			"created_at": createdAt,
		},
		Token: token,
	})
}

// recordDevice upserts the signing-in device. Failures only get logged.
func recordDevice(userID uuid.UUID, deviceToken string, r *http.Request) {
	if deviceToken == "" {
		return
	}
	_, err := database.PostgresDB.Exec(`
		INSERT INTO user_devices (user_id, device_token, ip_address, user_agent, last_used)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (device_token) DO UPDATE
		SET user_id = $1, ip_address = $3, user_agent = $4, last_used = NOW()
	`, userID, deviceToken, clientip.FromRequest(r), r.UserAgent())
	if err != nil {
		log.Printf("⚠️ Failed to record device for %s: %v", userID, err)
	}
}

// Signout invalidates the current session.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeUnauthorized(w)
		return
	}

	if err := services.InvalidateSession(token); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	writeJSON(w, http.StatusOK, ErrorResponse{Success: true, Message: "Signed out"})
}

// Me returns the authenticated user's profile.
func Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	user, err := services.GetUserByID(userID.String())
	if err != nil {
		if err == services.ErrNotFound {
			writeError(w, http.StatusNotFound, "User not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "OK",
		User: map[string]interface{}{
			"id":         user.ID.String(),
			"username":   user.Username,
			"avatar_url": user.AvatarURL,
			"created_at": user.CreatedAt,
		},
	})
}

type CheckUsernameResponse struct {
	Success   bool   `json:"success"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// CheckUsername reports whether a username is valid and unclaimed.
func CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := utils.NormalizeUsername(r.URL.Query().Get("username"))
	if err := utils.ValidateUsername(username); err != nil {
		writeJSON(w, http.StatusOK, CheckUsernameResponse{
			Success: true, Available: false, Message: err.Error(),
		})
		return
	}

	var existing string
	err := database.PostgresDB.QueryRow(
		"SELECT username FROM users WHERE LOWER(username) = LOWER($1)", username,
	).Scan(&existing)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusOK, CheckUsernameResponse{Success: true, Available: true})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, CheckUsernameResponse{
		Success: true, Available: false, Message: "Username is already taken",
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the password and invalidates the active session.
func ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	var passwordHash string
	err := database.PostgresDB.QueryRow(
		"SELECT password_hash FROM users WHERE id = $1", userID,
	).Scan(&passwordHash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	valid, err := utils.VerifyPassword(req.CurrentPassword, passwordHash)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if _, err := database.PostgresDB.Exec(
		"UPDATE users SET password_hash = $1 WHERE id = $2", newHash, userID,
	); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	services.InvalidateUserSessions(userID)
	writeJSON(w, http.StatusOK, ErrorResponse{Success: true, Message: "Password updated, please sign in again"})
}

type ChangeUsernameRequest struct {
	NewUsername string `json:"new_username"`
}

// ChangeUsername renames the account. Old comments and pending follow
// requests keep the name they were written with; feeds resolve usernames
// at read time and show the new one right away.
func ChangeUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req ChangeUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.NewUsername = utils.NormalizeUsername(req.NewUsername)
	if err := utils.ValidateUsername(req.NewUsername); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var existingID string
	err := database.PostgresDB.QueryRow(
		"SELECT id FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2",
		req.NewUsername, userID,
	).Scan(&existingID)
	if err == nil {
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	} else if err != sql.ErrNoRows {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	switch err := services.ChangeUsername(userID.String(), req.NewUsername); err {
	case nil:
	case services.ErrAlreadyExists:
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	case services.ErrNotFound:
		writeError(w, http.StatusNotFound, "User not found")
		return
	default:
		writeError(w, http.StatusInternalServerError, "Failed to change username")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Username updated",
		User: map[string]interface{}{
			"id":       userID.String(),
			"username": req.NewUsername,
		},
	})
}

// DeactivateAccount soft-deletes the account and ends the session.
// Mood documents are kept but stop appearing in feeds once the username
// no longer resolves.
func DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	if _, err := database.PostgresDB.ExecContext(ctx,
		"UPDATE users SET is_active = FALSE WHERE id = $1", userID,
	); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deactivate account")
		return
	}

	services.Cache.Delete(services.CacheKey("username", userID.String()))
	services.InvalidateUserSessions(userID)
	writeJSON(w, http.StatusOK, ErrorResponse{Success: true, Message: "Account deactivated"})
}
