package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/services"
	"github.com/moodloop/moodloop-backend/pkg/utils"
)

const resetTokenTTL = 1 * time.Hour

type ForgotPasswordRequest struct {
	Username      string `json:"username"`
	RecoveryEmail string `json:"recovery_email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ForgotPassword starts a password reset. The caller must present the
// recovery email stored for the account. The response never reveals whether
// the account or email matched; the reset token is delivered out of band.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.RecoveryEmail == "" {
		writeError(w, http.StatusBadRequest, "Username and recovery email are required")
		return
	}

	genericResponse := func() {
		writeJSON(w, http.StatusOK, ErrorResponse{
			Success: true,
			Message: "If the account and recovery email match, a reset link will be sent.",
		})
	}

	var userID uuid.UUID
	var emailEncrypted sql.NullString
	err := database.PostgresDB.QueryRow(`
		SELECT u.id, ur.email_encrypted
		FROM users u
		JOIN user_recovery ur ON ur.user_id = u.id
		WHERE LOWER(u.username) = LOWER($1) AND u.is_active = TRUE
	`, req.Username).Scan(&userID, &emailEncrypted)
	if err != nil {
		genericResponse()
		return
	}

	storedEmail, err := utils.Decrypt(emailEncrypted.String)
	if err != nil || storedEmail == "" || storedEmail != req.RecoveryEmail {
		genericResponse()
		return
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create reset token")
		return
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	_, err = database.PostgresDB.Exec(`
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, time.Now().Add(resetTokenTTL))
	if err != nil {
		log.Printf("⚠️ Failed to store reset token for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create reset token")
		return
	}

	// Token delivery (email) happens outside this service.
	genericResponse()
}

// ResetPassword consumes a reset token, sets the new password, and ends
// the user's active session.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Reset token is required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	var userID uuid.UUID
	var expiresAt time.Time
	var used bool
	err := database.PostgresDB.QueryRow(`
		SELECT user_id, expires_at, used
		FROM password_reset_tokens
		WHERE token = $1
	`, req.Token).Scan(&userID, &expiresAt, &used)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}
	if used || time.Now().After(expiresAt) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired reset token")
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
	if _, err := database.PostgresDB.Exec(
		"UPDATE password_reset_tokens SET used = TRUE WHERE token = $1", req.Token,
	); err != nil {
		log.Printf("⚠️ Failed to mark reset token used: %v", err)
	}

	services.InvalidateUserSessions(userID)
	writeJSON(w, http.StatusOK, ErrorResponse{Success: true, Message: "Password reset, please sign in"})
}
