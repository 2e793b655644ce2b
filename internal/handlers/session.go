package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmoboard/board/internal/models"
	"github.com/mmoboard/board/internal/repository"
)

const (
	sessionCookie = "session_id"

	ctxSessionKey = "session"
	ctxUserKey    = "user"
)

// ==============================================
// SESSION MANAGER
// ==============================================

// SessionUserGetter resolves the session's user for request context.
type SessionUserGetter interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
}

// SessionRepo is the slice of the session repository the manager needs.
type SessionRepo interface {
	Create(ctx context.Context, sess *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, sess *models.Session) error
}

// SessionManager loads the browser session for every request, creating
// one on first contact, and exposes flash-message helpers.
type SessionManager struct {
	sessions SessionRepo
	users    SessionUserGetter
}

func NewSessionManager(sessions SessionRepo, users SessionUserGetter) *SessionManager {
	return &SessionManager{sessions: sessions, users: users}
}

// Middleware attaches the session (and its user, when bound) to the
// gin context. Expired or unknown cookies get a fresh session.
func (m *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *models.Session

		if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
			sess, err = m.sessions.GetByID(c.Request.Context(), id)
			if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		if sess == nil {
			sess = &models.Session{
				ID:        uuid.NewString(),
				ExpiresAt: time.Now().Add(models.SessionTTL),
			}
			if err := m.sessions.Create(c.Request.Context(), sess); err != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetCookie(sessionCookie, sess.ID, int(models.SessionTTL.Seconds()), "/", "", false, true)
		}

		c.Set(ctxSessionKey, sess)

		if sess.IsAuthenticated() {
			user, err := m.users.GetUserByID(c.Request.Context(), int(sess.UserID.Int32))
			switch {
			case err == nil:
				c.Set(ctxUserKey, user)
			case errors.Is(err, models.ErrUserNotFound):
				// Stale binding, e.g. a deleted account. Unbind quietly.
				sess.LogOut()
				if uerr := m.sessions.Update(c.Request.Context(), sess); uerr != nil {
					log.Printf("failed to unbind stale session %s: %v", sess.ID, uerr)
				}
			default:
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		c.Next()
	}
}

// Flash queues a one-shot status message on the session.
func (m *SessionManager) Flash(c *gin.Context, level, text string) {
	sess := Session(c)
	sess.Data.Flashes = append(sess.Data.Flashes, models.Flash{Level: level, Text: text})
	if err := m.sessions.Update(c.Request.Context(), sess); err != nil {
		log.Printf("failed to store flash: %v", err)
	}
}

// PopFlashes drains the queued flash messages for rendering.
func (m *SessionManager) PopFlashes(c *gin.Context) []models.Flash {
	sess := Session(c)
	flashes := sess.Data.Flashes
	if len(flashes) == 0 {
		return nil
	}
	sess.Data.Flashes = nil
	if err := m.sessions.Update(c.Request.Context(), sess); err != nil {
		log.Printf("failed to clear flashes: %v", err)
	}
	return flashes
}

// ==============================================
// CONTEXT HELPERS
// ==============================================

// Session returns the request's session. The session middleware
// guarantees it exists.
func Session(c *gin.Context) *models.Session {
	return c.MustGet(ctxSessionKey).(*models.Session)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUserKey); ok {
		return v.(*models.User)
	}
	return nil
}

// RequireAuth redirects unauthenticated requests to the login page,
// preserving the destination in the next parameter.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login/?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}
