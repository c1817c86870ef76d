package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/moodloop/moodloop-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.Me)
	r.Get("/api/auth/check-username", handlers.CheckUsername)
	r.Post("/api/auth/change-password", handlers.ChangePassword)
	r.Post("/api/auth/change-username", handlers.ChangeUsername)
	r.Post("/api/auth/forgot-password", handlers.ForgotPassword)
	r.Post("/api/auth/reset-password", handlers.ResetPassword)
	r.Post("/api/auth/deactivate", handlers.DeactivateAccount)

	// Mood journaling routes
	r.Post("/api/moods", handlers.CreateMood)
	r.Get("/api/moods", handlers.GetMyMoods)
	r.Patch("/api/moods/{id}", handlers.UpdateMood)
	r.Delete("/api/moods/{id}", handlers.DeleteMood)
	r.Get("/api/moods/insights", handlers.GetMoodInsights)

	// Feed routes
	r.Get("/api/feed", handlers.GetFeed)
	r.Get("/api/feed/{userID}", handlers.GetUserFeed)

	// Comment routes
	r.Post("/api/comments", handlers.AddComment)
	r.Get("/api/comments/event/{eventID}", handlers.GetComments)
	r.Get("/api/comments/{commentID}/replies", handlers.GetReplies)
	r.Delete("/api/comments/{commentID}", handlers.DeleteComment)

	// Follow routes
	r.Post("/api/follow/request", handlers.SendFollowRequest)
	r.Post("/api/follow/requests/{requesterID}/accept", handlers.AcceptFollowRequest)
	r.Post("/api/follow/requests/{requesterID}/reject", handlers.RejectFollowRequest)
	r.Get("/api/follow/requests", handlers.ListFollowRequests)
	r.Delete("/api/follow/{userID}", handlers.Unfollow)
	r.Get("/api/follow/{userID}/status", handlers.GetFollowStatus)
	r.Get("/api/follow/following", handlers.ListFollowing)
	r.Get("/api/follow/followers", handlers.ListFollowers)

	// User routes
	r.Get("/api/users/search", handlers.SearchUsers)
	r.Get("/api/users/{userID}", handlers.GetUserProfile)

	// File upload routes
	r.Post("/api/upload", handlers.UploadImage)
	r.Post("/api/upload/avatar", handlers.UploadAvatar)

	// WebSocket endpoint for realtime notifications
	r.Get("/ws/notifications", handlers.NotificationsWebSocket)
}
