package akashi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stampbot/internal/attendance"
)

const testToken = "0a1b2c3d-4e5f-6789-abcd-ef0123456789"

var jst = time.FixedZone("JST", 9*60*60)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "acme", 5*time.Second, jst, zerolog.Nop())
	c.Now = func() time.Time { return time.Date(2021, 5, 8, 10, 30, 0, 0, jst) }
	return c
}

func TestFetchStampsRequest(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/acme/stamps" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("token") != testToken {
			t.Errorf("expected token query, got %q", q.Get("token"))
		}
		if q.Get("start_date") != "20210508000000" || q.Get("end_date") != "20210508235959" {
			t.Errorf("unexpected range %s - %s", q.Get("start_date"), q.Get("end_date"))
		}
		_, _ = w.Write([]byte(`{"success":true,"response":{"count":2,"stamps":[
			{"stamped_at":"2021/05/08 09:00:00","type":11},
			{"stamped_at":"2021/05/08 10:00:00","type":31}
		]}}`))
	})

	last, err := c.FetchLastStamp(context.Background(), testToken)
	if err != nil {
		t.Fatalf("FetchLastStamp failed: %v", err)
	}
	if last == nil || last.Type != attendance.BreakStart {
		t.Fatalf("expected break start, got %+v", last)
	}
	want := time.Date(2021, 5, 8, 10, 0, 0, 0, jst)
	if !last.StampedAt.Equal(want) {
		t.Fatalf("expected %s, got %s", want, last.StampedAt)
	}
}

func TestFetchLastStampNoneToday(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"response":{"count":0,"stamps":[]}}`))
	})
	last, err := c.FetchLastStamp(context.Background(), testToken)
	if err != nil {
		t.Fatalf("FetchLastStamp failed: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil, got %+v", last)
	}
}

func TestSubmitStamp(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/acme/stamps" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("type") != "11" || r.PostForm.Get("token") != testToken {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"success":true,"response":{"login_company_code":"acme","staff_id":1,"type":11,"stampedAt":"2021/05/08 00:00:00"}}`))
	})

	st, err := c.SubmitStamp(context.Background(), testToken, attendance.ClockIn)
	if err != nil {
		t.Fatalf("SubmitStamp failed: %v", err)
	}
	if got := st.Describe(); got != "勤務を開始:office:しました（時刻：2021-05-08 00:00:00）" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestReissueToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token/reissue/acme" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"response":{"login_company_code":"acme","staff_id":1,"token":"new-token","expired_at":"2021/06/07 23:59:59"}}`))
	})

	res, err := c.ReissueToken(context.Background(), testToken)
	if err != nil {
		t.Fatalf("ReissueToken failed: %v", err)
	}
	want := time.Date(2021, 6, 7, 23, 59, 59, 0, jst)
	if res.Token != "new-token" || !res.ExpiredAt.Equal(want) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rejected without response",
			status: http.StatusOK,
			body:   `{"success":false,"code":"E001","message":"invalid token"}`,
			check: func(t *testing.T, err error) {
				var rejection *RejectionError
				if !errors.As(err, &rejection) {
					t.Fatalf("expected RejectionError, got %T %v", err, err)
				}
				if rejection.Code != "E001" || rejection.Message != "invalid token" || rejection.Token != testToken {
					t.Fatalf("expected envelope code, message and token, got %+v", rejection)
				}
				if !strings.Contains(err.Error(), "[E001]invalid token") {
					t.Fatalf("expected code and message in %q", err.Error())
				}
				if strings.Contains(err.Error(), testToken) {
					t.Fatalf("token leaked in %q", err.Error())
				}
				if !strings.Contains(err.Error(), "-ef0123456789") {
					t.Fatalf("expected masked token tail in %q", err.Error())
				}
			},
		},
		{
			name:   "success flag without payload",
			status: http.StatusOK,
			body:   `{"success":true,"response":{}}`,
			check: func(t *testing.T, err error) {
				var rejection *RejectionError
				if !errors.As(err, &rejection) {
					t.Fatalf("expected RejectionError, got %T %v", err, err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusNotFound,
			body:   `{"success":true,"response":{"count":0,"stamps":[]}}`,
			check: func(t *testing.T, err error) {
				var transport *TransportError
				if !errors.As(err, &transport) {
					t.Fatalf("expected TransportError, got %T %v", err, err)
				}
				if transport.StatusCode != http.StatusNotFound {
					t.Fatalf("expected 404, got %d", transport.StatusCode)
				}
				if strings.Contains(err.Error(), testToken) {
					t.Fatalf("token leaked in %q", err.Error())
				}
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>maintenance</html>`,
			check: func(t *testing.T, err error) {
				var decode *DecodeError
				if !errors.As(err, &decode) {
					t.Fatalf("expected DecodeError, got %T %v", err, err)
				}
			},
		},
		{
			name:   "payload of the wrong shape",
			status: http.StatusOK,
			body:   `{"success":true,"response":{"stamps":"nope"}}`,
			check: func(t *testing.T, err error) {
				var decode *DecodeError
				if !errors.As(err, &decode) {
					t.Fatalf("expected DecodeError, got %T %v", err, err)
				}
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.FetchStamps(context.Background(), testToken, c.Now(), c.Now())
			if err == nil {
				t.Fatal("expected error")
			}
			tc.check(t, err)
		})
	}
}

func TestTransportErrorOnUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "acme", time.Second, jst, zerolog.Nop())
	_, err := c.ReissueToken(context.Background(), testToken)
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
	if transport.StatusCode != 0 {
		t.Fatalf("expected no status code, got %d", transport.StatusCode)
	}
}
