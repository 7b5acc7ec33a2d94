package httpmiddleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

// maxSlackBody bounds how much of a webhook body is buffered for verification.
const maxSlackBody = 1 << 20

// SlackSignature rejects requests that are not signed with the app's signing
// secret. The body is restored so handlers can still read the form.
func SlackSignature(signingSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSlackBody))
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sv, err := slack.NewSecretsVerifier(c.Request.Header, signingSecret)
		if err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if _, err := sv.Write(body); err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if err := sv.Ensure(); err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
