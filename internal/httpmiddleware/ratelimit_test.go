package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTokenBucketAllow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 2)
	l.now = func() time.Time { return now }

	if !l.allow("U1") || !l.allow("U1") {
		t.Fatal("expected the first two requests to pass")
	}
	if l.allow("U1") {
		t.Fatal("expected the third request to be limited")
	}
	if !l.allow("U2") {
		t.Fatal("expected other users to have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !l.allow("U1") {
		t.Fatal("expected a refill after half a minute")
	}
}

func TestSlackUserKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{name: "slash command", form: url.Values{"user_id": {"U1"}}, want: "U1"},
		{name: "interaction", form: url.Values{"payload": {`{"user":{"id":"U2"}}`}}, want: "U2"},
		{name: "anonymous", form: url.Values{}, want: "192.0.2.1"},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/slash", strings.NewReader(tc.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		if got := SlackUserKey(c); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestGinMiddlewareRepliesWhenLimited(t *testing.T) {
	t.Parallel()

	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.POST("/slash", l.GinMiddleware(SlackUserKey), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/slash", strings.NewReader("user_id=U1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Body.String() != "ok" {
		t.Fatalf("expected ok, got %q", rec.Body.String())
	}
	rec := send()
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "リクエストが多すぎます") {
		t.Fatalf("expected limited reply, got %d %q", rec.Code, rec.Body.String())
	}
}
