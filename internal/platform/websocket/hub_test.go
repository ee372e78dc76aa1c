package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentalcare/clinic/internal/platform/db"
)

func newClient(id, clinic string) *Client {
	return &Client{ID: id, Clinic: clinic, Topics: []string{TopicFor(clinic)}, Send: make(chan []byte, 8)}
}

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("invalid event JSON: %v", err)
		}
		return ev, true
	default:
		return Event{}, false
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c1", "smile")

	hub.Register(client)
	if hub.ClientCount() != 1 || hub.TopicCount("clinic.smile") != 1 {
		t.Fatalf("expected registered client, got %d/%d", hub.ClientCount(), hub.TopicCount("clinic.smile"))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("clinic.smile") != 0 {
		t.Fatal("expected client removed")
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send channel closed")
	}
	hub.Unregister(client)
}

func TestHub_PublishStaysInClinic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	smile := newClient("a", "smile")
	north := newClient("b", "north")
	hub.Register(smile)
	hub.Register(north)

	ctx := db.WithTenant(context.Background(), "smile")
	ev := NewEvent(ctx, "appointment.created", "appointment", "42", map[string]string{"appId": "42"})
	if err := hub.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, ok := receive(t, smile)
	if !ok {
		t.Fatal("expected smile client to receive the event")
	}
	if got.Type != "appointment.created" || got.EntityID != "42" || got.Topic != "clinic.smile" {
		t.Errorf("unexpected event %+v", got)
	}
	if string(got.Data) != `{"appId":"42"}` {
		t.Errorf("unexpected data %s", got.Data)
	}
	if _, ok := receive(t, north); ok {
		t.Error("north must not receive smile events")
	}
}

func TestHub_EntitySubscription(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "x", Clinic: "smile", Send: make(chan []byte, 8)}
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"clinic.smile.invoice", "clinic.north", "clinic.smileX"}})
	if len(client.Topics) != 1 || client.Topics[0] != "clinic.smile.invoice" {
		t.Fatalf("expected only own-clinic topics, got %v", client.Topics)
	}

	ctx := db.WithTenant(context.Background(), "smile")
	hub.Publish(ctx, NewEvent(ctx, "receipt.created", "receipt", "r1", nil))
	if _, ok := receive(t, client); ok {
		t.Error("receipt event must not reach an invoice-only subscriber")
	}
	hub.Publish(ctx, NewEvent(ctx, "invoice.created", "invoice", "i1", nil))
	if ev, ok := receive(t, client); !ok || ev.EntityID != "i1" {
		t.Errorf("expected invoice event, got %+v (%v)", ev, ok)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"clinic.smile.invoice"}})
	if hub.TopicCount("clinic.smile.invoice") != 0 || len(client.Topics) != 0 {
		t.Errorf("expected unsubscribe, topics=%v", client.Topics)
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Clinic: "smile", Topics: []string{"clinic.smile"}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Broadcast("clinic.smile", Event{Type: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("c", "smile")
			hub.Register(c)
			hub.Broadcast("clinic.smile", Event{Type: "ping"})
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHandler_RequiresClinic(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), httptest.NewRecorder())

	err := h.HandleConnect(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	g := e.Group("", db.StaticTenant("default"))
	NewHandler(hub, []string{"http://localhost:3000"}).RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	header.Set(db.ClinicHeader, "smile")
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount("clinic.smile") < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount("clinic.smile") != 1 {
		t.Fatal("expected connection subscribed to its clinic topic")
	}

	ctx := db.WithTenant(context.Background(), "smile")
	hub.Publish(ctx, NewEvent(ctx, "appointment.updated", "appointment", "7", nil))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != "appointment.updated" || received.EntityID != "7" {
		t.Errorf("unexpected event %+v", received)
	}
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	g := e.Group("", db.StaticTenant("default"))
	NewHandler(hub, []string{"http://localhost:3000"}).RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, _, err := gorillawebsocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", header)
	if err == nil {
		t.Fatal("expected handshake to fail for a foreign origin")
	}
}
