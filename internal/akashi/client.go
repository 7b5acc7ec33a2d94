package akashi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stampbot/internal/attendance"
)

// DefaultBaseURL is the AKASHI cooperation API root.
const DefaultBaseURL = "https://atnd.ak4.jp/api/cooperation"

// Client calls the AKASHI attendance API. Every call carries the user's token.
type Client struct {
	BaseURL   string
	CompanyID string
	HTTP      *http.Client
	Location  *time.Location
	Now       func() time.Time
	Log       zerolog.Logger
}

// New creates a client with configurable timeout.
func New(baseURL, companyID string, timeout time.Duration, loc *time.Location, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		CompanyID: companyID,
		HTTP:      &http.Client{Timeout: timeout},
		Location:  loc,
		Now:       time.Now,
		Log:       log.With().Str("component", "akashi").Logger(),
	}
}

// FetchLastStamp returns the latest stamp of the current day, or nil when
// there is none yet.
func (c *Client) FetchLastStamp(ctx context.Context, token string) (*attendance.Stamp, error) {
	today := c.now()
	res, err := c.FetchStamps(ctx, token, today, today)
	if err != nil {
		return nil, err
	}
	if res.Count == 0 {
		return nil, nil
	}
	last := res.Stamps[len(res.Stamps)-1]
	return &last, nil
}

// FetchStamps lists the stamps between the start of from and the end of to.
func (c *Client) FetchStamps(ctx context.Context, token string, from, to time.Time) (StampList, error) {
	params := url.Values{}
	params.Set("start_date", from.In(c.Location).Format("20060102")+"000000")
	params.Set("end_date", to.In(c.Location).Format("20060102")+"235959")

	raw, endpoint, err := c.get(ctx, token, "/"+c.CompanyID+"/stamps", params)
	if err != nil {
		return StampList{}, err
	}
	list, err := decodeStampList(raw, c.Location)
	if err != nil {
		return StampList{}, &DecodeError{URL: endpoint, Err: err}
	}
	return list, nil
}

// SubmitStamp records a new stamp and returns it with the server-assigned time.
func (c *Client) SubmitStamp(ctx context.Context, token string, code attendance.Code) (attendance.Stamp, error) {
	form := url.Values{}
	form.Set("type", strconv.Itoa(int(code)))

	raw, endpoint, err := c.post(ctx, token, "/"+c.CompanyID+"/stamps", form)
	if err != nil {
		return attendance.Stamp{}, err
	}
	st, err := decodeNewStamp(raw, c.Location)
	if err != nil {
		return attendance.Stamp{}, &DecodeError{URL: endpoint, Err: err}
	}
	return st, nil
}

// ReissueToken exchanges token for a new one with a later expiry.
func (c *Client) ReissueToken(ctx context.Context, token string) (ReissuedToken, error) {
	raw, endpoint, err := c.post(ctx, token, "/token/reissue/"+c.CompanyID, url.Values{})
	if err != nil {
		return ReissuedToken{}, err
	}
	res, err := decodeReissue(raw, c.Location)
	if err != nil {
		return ReissuedToken{}, &DecodeError{URL: endpoint, Err: err}
	}
	return res, nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values) (json.RawMessage, string, error) {
	endpoint := c.BaseURL + path
	params.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, endpoint, err
	}
	raw, err := c.do(req, endpoint, token)
	return raw, endpoint, err
}

func (c *Client) post(ctx context.Context, token, path string, form url.Values) (json.RawMessage, string, error) {
	endpoint := c.BaseURL + path
	form.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, endpoint, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := c.do(req, endpoint, token)
	return raw, endpoint, err
}

// do sends req and unwraps the envelope. endpoint is the URL without the
// query string so tokens never end up in errors.
func (c *Client) do(req *http.Request, endpoint, token string) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.Log.Debug().
		Str("method", req.Method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("akashi request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &DecodeError{URL: endpoint, Err: fmt.Errorf("envelope: %w", err)}
	}
	raw := env.payload()
	if raw == nil {
		return nil, &RejectionError{Code: env.Code, Message: env.Message, Token: token}
	}
	return raw, nil
}
