package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// render draws an HTML page with the common context every template
// expects: the current user and any queued flash messages.
func render(c *gin.Context, sm *SessionManager, status int, template string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = CurrentUser(c)
	data["Flashes"] = sm.PopFlashes(c)
	c.HTML(status, template, data)
}

// renderError draws the shared error page.
func renderError(c *gin.Context, sm *SessionManager, status int, message string) {
	render(c, sm, status, "error.html", gin.H{"Message": message, "Status": status})
}

// internalError shows the generic 500 page.
func internalError(c *gin.Context, sm *SessionManager) {
	renderError(c, sm, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
