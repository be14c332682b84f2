package backbone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example/xbook/internal/booking"
)

// Login performs the credential exchange: a form-encoded POST to the auth
// endpoint yields a bearer token, and an authenticated follow-up GET to
// the same endpoint resolves the caller's member id.
func (c *Client) Login(ctx context.Context, creds booking.Credentials) (booking.Session, error) {
	form := url.Values{
		"email":    {creds.Email},
		"password": {creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := do(c.hc, req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	if status >= 400 {
		return nil, &AuthError{Status: status, Body: string(body)}
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.AccessToken == "" {
		return nil, &AuthError{Status: status, Body: string(body)}
	}

	c.log.Info("authenticated successfully, resolving member id")

	// Sessions are scoped to one booking attempt, so each login gets its
	// own client whose connections Close can release.
	sess := &session{
		hc:        &http.Client{},
		baseURL:   c.baseURL,
		authority: c.authority,
		token:     tokens.AccessToken,
		log:       c.log,
	}

	status, body, err = sess.do(ctx, http.MethodGet, c.baseURL+"/auth", nil)
	if err != nil {
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if status >= 400 {
		return nil, &AuthError{Status: status, Body: string(body)}
	}
	var member struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &member); err != nil || member.ID == 0 {
		return nil, &AuthError{Status: status, Body: string(body)}
	}
	sess.memberID = member.ID

	c.log.Info("received member id", zap.Int64("member_id", member.ID))
	return sess, nil
}

type session struct {
	hc        *http.Client
	baseURL   string
	authority string
	token     string
	memberID  int64
	log       *zap.Logger
}

func (s *session) MemberID() int64 { return s.memberID }

type bookingParams struct {
	StartDate               string   `json:"startDate"`
	EndDate                 string   `json:"endDate"`
	BookableProductID       int64    `json:"bookableProductId"`
	BookableLinkedProductID int64    `json:"bookableLinkedProductId"`
	BookingID               int64    `json:"bookingID"`
	InvitedMemberEmails     []string `json:"invitedMemberEmails"`
	InvitedGuests           []string `json:"invitedGuests"`
	InvitedOthers           []string `json:"invitedOthers"`
}

type bookingRequest struct {
	MemberID  int64         `json:"memberId"`
	BookingID int64         `json:"bookingId"`
	Params    bookingParams `json:"params"`
}

// Book submits the reservation. A rejection (the slot was just taken, or
// the service refused the request) returns ok=false; the caller decides
// whether to try again.
func (s *session) Book(ctx context.Context, slot booking.Slot) (bool, error) {
	payload := bookingRequest{
		MemberID:  s.memberID,
		BookingID: slot.BookingID,
		Params: bookingParams{
			StartDate:               slot.StartDate,
			EndDate:                 slot.EndDate,
			BookableProductID:       slot.BookableProductID,
			BookableLinkedProductID: slot.LinkedProductID,
			BookingID:               slot.BookingID,
			InvitedMemberEmails:     []string{},
			InvitedGuests:           []string{},
			InvitedOthers:           []string{},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	status, body, err := s.do(ctx, http.MethodPost, s.baseURL+"/participations", b)
	if err != nil {
		return false, fmt.Errorf("booking request: %w", err)
	}
	if status >= 400 {
		s.log.Warn("booking rejected",
			zap.Int("status", status),
			zap.String("body", string(body)))
		return false, nil
	}
	return true, nil
}

func (s *session) Close() {
	s.hc.CloseIdleConnections()
}

func (s *session) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("authorization", "Bearer "+s.token)
	req.Header.Set("authority", s.authority)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(s.hc, req)
}

func do(hc *http.Client, req *http.Request) (int, []byte, error) {
	res, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
