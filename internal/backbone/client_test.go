package backbone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/xbook/internal/timeslot"
)

func testTarget(t *testing.T) timeslot.Target {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, loc)
	tg, err := timeslot.Normalize("2024-03-01 16:00", now, loc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return tg
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 28, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Now = func() time.Time { return time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC) }
	return c
}

func slotJSON(start string, available bool) string {
	return fmt.Sprintf(`{
		"startDate": %q,
		"endDate": "2024-03-01T16:00:00.000Z",
		"bookingId": 123,
		"bookableProductId": 7,
		"linkedProductId": 9,
		"isAvailable": %t
	}`, start, available)
}

func TestSlotAtAvailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":[%s,%s]}`,
			slotJSON("2024-03-01T14:00:00.000Z", true),
			slotJSON("2024-03-01T15:00:00.000Z", true))
	}))

	slot, ok, err := c.SlotAt(context.Background(), testTarget(t))
	if err != nil {
		t.Fatalf("SlotAt: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if slot.BookingID != 123 || slot.BookableProductID != 7 || slot.LinkedProductID != 9 {
		t.Errorf("unexpected slot ids: %+v", slot)
	}
	if slot.StartDate != "2024-03-01T15:00:00.000Z" {
		t.Errorf("StartDate = %q", slot.StartDate)
	}
}

func TestSlotAtNotYetAvailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":[%s]}`, slotJSON("2024-03-01T15:00:00.000Z", false))
	}))

	_, ok, err := c.SlotAt(context.Background(), testTarget(t))
	if err != nil {
		t.Fatalf("SlotAt: %v", err)
	}
	if ok {
		t.Fatal("ok = true for unavailable slot")
	}
}

func TestSlotAtNoMatchingSlot(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":[%s]}`, slotJSON("2024-03-01T14:00:00.000Z", true))
	}))

	_, _, err := c.SlotAt(context.Background(), testTarget(t))
	if !errors.Is(err, ErrNoMatchingSlot) {
		t.Fatalf("err = %v, want ErrNoMatchingSlot", err)
	}
}

func TestSlotAtToleratesNonOKSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"data":[%s]}`, slotJSON("2024-03-01T15:00:00.000Z", true))
	}))

	slot, ok, err := c.SlotAt(context.Background(), testTarget(t))
	if err != nil {
		t.Fatalf("SlotAt rejected 202 response: %v", err)
	}
	if !ok || slot.BookingID != 123 {
		t.Errorf("slot = %+v ok = %t, want available slot 123", slot, ok)
	}
}

func TestSlotAtRemoteError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, _, err := c.SlotAt(context.Background(), testTarget(t))
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if re.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", re.Status)
	}
}

func TestAvailabilityQueryEncoding(t *testing.T) {
	var gotFilter string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookable-slots" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotFilter = r.URL.Query().Get("s")
		fmt.Fprintf(w, `{"data":[%s]}`, slotJSON("2024-03-01T15:00:00.000Z", true))
	}))

	if _, _, err := c.SlotAt(context.Background(), testTarget(t)); err != nil {
		t.Fatalf("SlotAt: %v", err)
	}

	var f struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		TagIDs    struct {
			In []int `json:"$in"`
		} `json:"tagIds"`
		AvailableFromDate struct {
			Gt string `json:"$gt"`
		} `json:"availableFromDate"`
		AvailableTillDate struct {
			Gte string `json:"$gte"`
		} `json:"availableTillDate"`
	}
	if err := json.Unmarshal([]byte(gotFilter), &f); err != nil {
		t.Fatalf("filter is not valid JSON: %v (%q)", err, gotFilter)
	}

	// The target's calendar day in Amsterdam time, converted to UTC.
	if f.StartDate != "2024-02-29T23:00:00.000Z" {
		t.Errorf("startDate = %q", f.StartDate)
	}
	if f.EndDate != "2024-03-01T22:00:00.000Z" {
		t.Errorf("endDate = %q", f.EndDate)
	}
	if len(f.TagIDs.In) != 1 || f.TagIDs.In[0] != 28 {
		t.Errorf("tagIds = %v", f.TagIDs.In)
	}
	wantNow := "2024-02-15T10:30:00.000Z"
	if f.AvailableFromDate.Gt != wantNow || f.AvailableTillDate.Gte != wantNow {
		t.Errorf("freshness bounds = %q / %q, want %q", f.AvailableFromDate.Gt, f.AvailableTillDate.Gte, wantNow)
	}
}
