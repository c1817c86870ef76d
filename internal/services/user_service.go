package services

import (
	"database/sql"
	"log"
	"strings"

	"github.com/lib/pq"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
)

// GetUsernameByID returns the username for a user ID, checking the Redis
// cache before PostgreSQL. Returns "" (no error) when the user does not exist.
func GetUsernameByID(userID string) (string, error) {
	cacheKey := CacheKey("username", userID)
	if username, found, _ := Cache.GetString(cacheKey); found {
		return username, nil
	}

	var username string
	err := database.PostgresDB.QueryRow(
		"SELECT username FROM users WHERE id = $1 AND is_active = TRUE",
		userID,
	).Scan(&username)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if err := Cache.SetString(cacheKey, username); err != nil {
		log.Printf("⚠️ Failed to cache username for %s: %v", userID, err)
	}

	return username, nil
}

// GetUserIDByUsername returns the user ID for a username.
// Returns "" (no error) when no active user has that username.
func GetUserIDByUsername(username string) (string, error) {
	var id string
	err := database.PostgresDB.QueryRow(
		"SELECT id FROM users WHERE LOWER(username) = LOWER($1) AND is_active = TRUE",
		username,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetUserByID returns the public profile for a user ID.
func GetUserByID(userID string) (*models.User, error) {
	var u models.User
	var avatarURL sql.NullString
	err := database.PostgresDB.QueryRow(
		"SELECT id, username, avatar_url, created_at, is_active FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Username, &avatarURL, &u.CreatedAt, &u.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.AvatarURL = avatarURL.String
	return &u, nil
}

// likeEscaper neutralizes LIKE metacharacters so a search for "%" or "_"
// matches those characters literally instead of everything.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers returns active users whose username starts with the given
// prefix, capped at 20 results. Empty prefix returns no results.
func SearchUsers(prefix string) ([]models.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []models.User{}, nil
	}

	rows, err := database.PostgresDB.Query(
		`SELECT id, username, avatar_url, created_at, is_active
		 FROM users
		 WHERE username ILIKE $1 || '%' ESCAPE '\' AND is_active = TRUE
		 ORDER BY username
		 LIMIT 20`,
		likeEscaper.Replace(prefix),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var avatarURL sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &avatarURL, &u.CreatedAt, &u.IsActive); err != nil {
			return nil, err
		}
		u.AvatarURL = avatarURL.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// ChangeUsername renames an active user and refreshes the cached name.
// Denormalized copies on existing comments and follow requests are not
// rewritten; the feed resolves usernames at read time, so it picks the new
// name up immediately.
func ChangeUsername(userID string, username string) error {
	result, err := database.PostgresDB.Exec(
		"UPDATE users SET username = $1 WHERE id = $2 AND is_active = TRUE",
		username, userID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := Cache.SetString(CacheKey("username", userID), username); err != nil {
		log.Printf("⚠️ Failed to refresh cached username for %s: %v", userID, err)
	}
	return nil
}

// UpdateUserAvatar stores a new avatar URL for the user.
func UpdateUserAvatar(userID string, avatarURL string) error {
	result, err := database.PostgresDB.Exec(
		"UPDATE users SET avatar_url = $1 WHERE id = $2",
		avatarURL, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
