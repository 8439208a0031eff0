package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/zone"
	"github.com/nerrad567/gray-logic-access/migrations"
)

type testEnv struct {
	srv     *Server
	http    *httptest.Server
	devices *hardware.Registry
	audit   audit.Repository
}

type latencyRecorder struct {
	calls []string
}

func (l *latencyRecorder) WriteCommandLatency(device, verb string, ok bool, _ time.Duration) {
	l.calls = append(l.calls, device+" "+verb)
}

func setupTestServer(t *testing.T, transport facade.Transport, telemetry CommandTelemetry) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	registry := hardware.NewRegistry(hardware.NewSQLiteRepository(db.DB))
	auditRepo := audit.NewSQLiteRepository(db.DB)
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)

	srv, err := New(Deps{
		WS:             config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:         logger,
		Devices:        registry,
		Zones:          zone.NewSQLiteRepository(db.DB),
		AuditRepo:      auditRepo,
		Transport:      transport,
		CommandTimeout: 100 * time.Millisecond,
		Telemetry:      telemetry,
		Version:        "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler(context.Background()))
	t.Cleanup(func() {
		ts.Close()
		srv.Close() //nolint:errcheck // Test cleanup
	})
	return &testEnv{srv: srv, http: ts, devices: registry, audit: auditRepo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.http.URL+"/api/v1"+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	return v
}

func gpioBody(name string, number int) map[string]any {
	return map[string]any{
		"name":    name,
		"class":   "gpio",
		"enabled": true,
		"spec":    map[string]any{"number": number, "direction": "out"},
	}
}

func firstPointer(t *testing.T, data []byte) string {
	t.Helper()
	resp := decode[ErrorResponse](t, data)
	if len(resp.Errors) == 0 {
		t.Fatalf("error body %s has no errors", data)
	}
	if resp.Errors[0].Source == nil {
		return ""
	}
	return resp.Errors[0].Source.Pointer
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, facade.NewLocalTransport(), nil)

	resp, data := env.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, data)
	if body["status"] != "ok" || body["transport"] != "inproc" {
		t.Errorf("health = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestDevices_Lifecycle(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	resp, data := env.do(t, http.MethodPost, "/devices", gpioBody("door-relay", 17))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, data)
	}
	created := decode[hardware.Device](t, data)
	if created.ID == "" || created.Version != 1 {
		t.Fatalf("created = %+v", created)
	}

	// Lookup by name.
	resp, data = env.do(t, http.MethodGet, "/devices/door-relay", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body %s", resp.StatusCode, data)
	}
	if got := decode[hardware.Device](t, data); got.ID != created.ID {
		t.Errorf("get ID = %q, want %q", got.ID, created.ID)
	}

	update := gpioBody("door-relay", 18)
	update["version"] = 1
	resp, data = env.do(t, http.MethodPut, "/devices/"+created.ID, update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, data)
	}

	// Version 1 is now stale.
	resp, _ = env.do(t, http.MethodPut, "/devices/"+created.ID, update)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stale update status = %d, want 409", resp.StatusCode)
	}

	resp, data = env.do(t, http.MethodGet, "/devices?class=gpio", nil)
	list := decode[struct {
		Count int `json:"count"`
	}](t, data)
	if resp.StatusCode != http.StatusOK || list.Count != 1 {
		t.Errorf("list status = %d, count = %d", resp.StatusCode, list.Count)
	}

	resp, _ = env.do(t, http.MethodDelete, "/devices/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/devices/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDevices_CreateErrors(t *testing.T) {
	env := setupTestServer(t, nil, nil)
	env.do(t, http.MethodPost, "/devices", gpioBody("taken", 4))

	tests := []struct {
		name        string
		body        any
		wantStatus  int
		wantPointer string
	}{
		{"empty name", gpioBody("", 5), http.StatusUnprocessableEntity, hardware.PointerName},
		{"duplicate name", gpioBody("taken", 6), http.StatusUnprocessableEntity, hardware.PointerName},
		{"bad direction", map[string]any{
			"name": "x", "class": "gpio", "spec": map[string]any{"number": 1, "direction": "up"},
		}, http.StatusUnprocessableEntity, "data/attributes/spec/direction"},
		{"unknown class", map[string]any{"name": "x", "class": "toaster"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/devices", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", resp.StatusCode, tt.wantStatus, data)
			}
			if tt.wantPointer != "" {
				if got := firstPointer(t, data); got != tt.wantPointer {
					t.Errorf("pointer = %q, want %q", got, tt.wantPointer)
				}
			}
		})
	}
}

func TestDeviceCommand(t *testing.T) {
	transport := facade.NewLocalTransport()
	release := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		transport.Close() //nolint:errcheck // Test cleanup
	})

	err := transport.Handle("relay", facade.HandlerFunc(func(ctx context.Context, frames []string) string {
		switch frames[0] {
		case facade.VerbOn:
			return facade.ReplyOK
		case facade.VerbToggle:
			return facade.ReplyKO
		case facade.VerbState:
			return "ON"
		case facade.VerbBlink:
			select {
			case <-release:
			case <-ctx.Done():
			}
			return facade.ReplyOK
		default:
			return "GARBAGE"
		}
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	telemetry := &latencyRecorder{}
	env := setupTestServer(t, transport, telemetry)
	env.do(t, http.MethodPost, "/devices", gpioBody("relay", 17))
	env.do(t, http.MethodPost, "/devices", gpioBody("orphan", 18))

	tests := []struct {
		name       string
		device     string
		verb       string
		wantStatus int
		wantOK     bool
		wantReply  string
	}{
		{"ok", "relay", "on", http.StatusOK, true, ""},
		{"ko", "relay", "TOGGLE", http.StatusOK, false, ""},
		{"query", "relay", "STATE", http.StatusOK, true, "ON"},
		{"protocol violation", "relay", "OFF", http.StatusBadGateway, false, ""},
		{"timeout", "relay", "BLINK", http.StatusGatewayTimeout, false, ""},
		{"no actor", "orphan", "ON", http.StatusServiceUnavailable, false, ""},
		{"unknown verb", "relay", "DANCE", http.StatusUnprocessableEntity, false, ""},
		{"unknown device", "ghost", "ON", http.StatusNotFound, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/devices/"+tt.device+"/commands", DeviceCommand{Verb: tt.verb})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", resp.StatusCode, tt.wantStatus, data)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[CommandResult](t, data)
			if got.OK != tt.wantOK || got.Reply != tt.wantReply {
				t.Errorf("result = %+v, want ok=%v reply=%q", got, tt.wantOK, tt.wantReply)
			}
		})
	}

	if len(telemetry.calls) == 0 {
		t.Error("no command latency recorded")
	}
}

func TestDeviceCommand_NoTransport(t *testing.T) {
	env := setupTestServer(t, nil, nil)
	env.do(t, http.MethodPost, "/devices", gpioBody("relay", 17))

	resp, _ := env.do(t, http.MethodPost, "/devices/relay/commands", DeviceCommand{Verb: "ON"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestZones(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	resp, data := env.do(t, http.MethodPost, "/zones", map[string]any{"alias": "building", "type": "PHYSICAL"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create building status = %d, body %s", resp.StatusCode, data)
	}
	building := decode[zoneResponse](t, data)

	resp, data = env.do(t, http.MethodPost, "/zones", map[string]any{"alias": "room", "type": "PHYSICAL"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d, body %s", resp.StatusCode, data)
	}
	room := decode[zoneResponse](t, data)

	resp, data = env.do(t, http.MethodPut, "/zones/"+itoa(building.ID), map[string]any{
		"alias": "building", "type": "PHYSICAL", "children": []int64{room.ID}, "version": 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("link status = %d, body %s", resp.StatusCode, data)
	}

	resp, data = env.do(t, http.MethodGet, "/zones/"+itoa(room.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room status = %d", resp.StatusCode)
	}
	if got := decode[zoneResponse](t, data); len(got.Parents) != 1 || got.Parents[0] != building.ID {
		t.Errorf("room parents = %v, want [%d]", got.Parents, building.ID)
	}

	// Making the building a child of the room closes a loop.
	resp, data = env.do(t, http.MethodPut, "/zones/"+itoa(room.ID), map[string]any{
		"alias": "room", "type": "PHYSICAL", "children": []int64{building.ID}, "version": 1,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("cycle status = %d, body %s", resp.StatusCode, data)
	}
	if got := firstPointer(t, data); got != zone.PointerChildren {
		t.Errorf("cycle pointer = %q, want %q", got, zone.PointerChildren)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"bad id", http.MethodGet, "/zones/abc", nil, http.StatusBadRequest},
		{"missing", http.MethodGet, "/zones/999", nil, http.StatusNotFound},
		{"empty alias", http.MethodPost, "/zones", map[string]any{"type": "LOGICAL"}, http.StatusUnprocessableEntity},
		{"bad type", http.MethodPost, "/zones", map[string]any{"alias": "x", "type": "FLOOR"}, http.StatusUnprocessableEntity},
		{"unknown child", http.MethodPost, "/zones", map[string]any{
			"alias": "x", "type": "LOGICAL", "children": []int64{999},
		}, http.StatusUnprocessableEntity},
		{"delete", http.MethodDelete, "/zones/" + itoa(room.ID), nil, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d, body %s", resp.StatusCode, tt.wantStatus, data)
			}
		})
	}
}

func TestDoors(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	resp, data := env.do(t, http.MethodPost, "/doors", map[string]any{"alias": "front"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, data)
	}
	door := decode[zone.Door](t, data)

	resp, data = env.do(t, http.MethodPost, "/zones", map[string]any{
		"alias": "lobby", "type": "LOGICAL", "doors": []int64{door.ID},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create zone status = %d, body %s", resp.StatusCode, data)
	}
	if got := decode[zoneResponse](t, data); len(got.Doors) != 1 || got.Doors[0].Alias != "front" {
		t.Errorf("zone doors = %+v", got.Doors)
	}

	resp, data = env.do(t, http.MethodPost, "/doors", map[string]any{"alias": "back", "access_point_id": "nope"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown access point status = %d, body %s", resp.StatusCode, data)
	}

	resp, _ = env.do(t, http.MethodDelete, "/doors/"+itoa(door.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/doors/"+itoa(door.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDecodeCredential(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	tests := []struct {
		name        string
		body        map[string]any
		wantStatus  int
		wantNumber  uint64
		wantFormat  string
		wantPointer string
	}{
		{"wiegand 26", map[string]any{"card_id": "ff:ff:ff:c0", "nb_bits": 26}, http.StatusOK, 0xFFFF, "wiegand26", ""},
		{"raw", map[string]any{"card_id": "01:02", "nb_bits": 16}, http.StatusOK, 0x0102, "raw", ""},
		{"bad id", map[string]any{"card_id": "zz", "nb_bits": 26}, http.StatusUnprocessableEntity, 0, "", "data/attributes/cardId"},
		{"bad bits", map[string]any{"card_id": "ff", "nb_bits": 0}, http.StatusUnprocessableEntity, 0, "", "data/attributes/nbBits"},
		{"too wide", map[string]any{
			"card_id": "01:02:03:04:05:06:07:08:09", "nb_bits": 72,
		}, http.StatusUnprocessableEntity, 0, "", "data/attributes/cardId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/credentials/decode", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", resp.StatusCode, tt.wantStatus, data)
			}
			if tt.wantPointer != "" {
				if got := firstPointer(t, data); got != tt.wantPointer {
					t.Errorf("pointer = %q, want %q", got, tt.wantPointer)
				}
				return
			}
			info := decode[access.CardInfo](t, data)
			if info.Number != tt.wantNumber || info.Format != tt.wantFormat {
				t.Errorf("decoded = %+v, want number %d format %s", info, tt.wantNumber, tt.wantFormat)
			}
		})
	}
}

func TestAuditTrail(t *testing.T) {
	env := setupTestServer(t, nil, nil)
	env.do(t, http.MethodPost, "/devices", gpioBody("relay", 17))
	env.do(t, http.MethodPost, "/zones", map[string]any{"alias": "hall", "type": "LOGICAL"})

	// Close flushes the async audit queue.
	if err := env.srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	result, err := env.audit.List(context.Background(), audit.Filter{Action: audit.ActionCreate})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}
	kinds := map[string]bool{}
	for _, e := range result.Entries {
		kinds[e.EntityType] = true
		if e.Source != "api" {
			t.Errorf("Source = %q, want api", e.Source)
		}
	}
	if !kinds[audit.EntityDevice] || !kinds[audit.EntityZone] {
		t.Errorf("entity types = %v", kinds)
	}
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, env.http.URL+"/api/v1/zones", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Origin", "http://panel.local")
	resp, err := env.http.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "PUT") {
		t.Errorf("Allow-Methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
