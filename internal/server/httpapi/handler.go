package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/server/services"
	"github.com/gin-gonic/gin"
)

type scheduleRequest struct {
	UserID       string  `json:"userId"`
	Subreddit    string  `json:"subreddit"`
	Title        string  `json:"title"`
	ScheduleTime string  `json:"scheduleTime"`
	Body         *string `json:"body"`
	Link         *string `json:"link"`
}

type scheduledPostResponse struct {
	PostID       string    `json:"postId"`
	Subreddit    string    `json:"subreddit"`
	Title        string    `json:"title"`
	ScheduleTime time.Time `json:"scheduleTime"`
}

type deleteRequest struct {
	UserID string `json:"userId"`
	PostID string `json:"postId"`
}

type authUser struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// bindJSON decodes the request body; an empty body leaves v zero-valued.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// fail writes err as {"error": ...}. Caller-facing service errors keep their
// own status and message; anything else is a 500 prefixed with prefix.
func (s *HTTPServer) fail(c *gin.Context, prefix string, err error) {
	if services.IsRequestError(err) {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusInternalServerError, gin.H{"error": prefix + err.Error()})
}

func (s *HTTPServer) redirectWithError(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, s.frontendURL+"/?error="+url.QueryEscape(msg))
}

func (s *HTTPServer) login(c *gin.Context) {
	target, err := s.auth.LoginURL(c.Request.Context())
	if err != nil {
		s.logger.Error(c.Request.Context(), "login failed", "error", err)
		msg := "Authentication failed"
		if services.IsRequestError(err) {
			msg = err.Error()
		}
		s.redirectWithError(c, msg)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (s *HTTPServer) authCallback(c *gin.Context) {
	username, err := s.auth.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state"), c.Query("error"))
	if err != nil {
		msg := "Authentication failed"
		if services.IsRequestError(err) {
			msg = err.Error()
		}
		s.redirectWithError(c, msg)
		return
	}

	user, err := json.Marshal(authUser{Username: username, UserID: username})
	if err != nil {
		s.redirectWithError(c, "Authentication failed")
		return
	}
	c.Redirect(http.StatusFound, s.frontendURL+"/?auth=success&user="+url.QueryEscape(string(user)))
}

func (s *HTTPServer) listPosts(c *gin.Context) {
	posts, err := s.posts.List(c.Request.Context(), c.Query("userId"))
	if err != nil {
		s.fail(c, "Failed to fetch posts: ", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts})
}

func (s *HTTPServer) deletePost(c *gin.Context) {
	var req deleteRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.posts.Delete(c.Request.Context(), req.UserID, req.PostID); err != nil {
		s.fail(c, "Failed to delete post: ", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
}

func (s *HTTPServer) schedulePost(c *gin.Context) {
	var req scheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := s.posts.Schedule(c.Request.Context(), services.ScheduleRequest{
		UserID:       req.UserID,
		Subreddit:    req.Subreddit,
		Title:        req.Title,
		ScheduleTime: req.ScheduleTime,
		Body:         req.Body,
		Link:         req.Link,
	})
	if err != nil {
		s.fail(c, "Failed to schedule post: ", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"post": scheduledPostResponse{
			PostID:       post.PostID,
			Subreddit:    post.Subreddit,
			Title:        post.Title,
			ScheduleTime: post.ScheduleTime,
		},
	})
}

func (s *HTTPServer) runScheduler(c *gin.Context) {
	// the run completes even if the caller disconnects
	res, err := s.scheduler.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.fail(c, "Scheduler failed: ", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   res.Message(),
		"processed": res.Processed,
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
		"errors":    res.Errors,
	})
}
