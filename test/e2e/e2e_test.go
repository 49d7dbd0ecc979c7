// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-checkin/internal/api"
	"venue-checkin/internal/common/config"
	"venue-checkin/internal/common/crm"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/match"
	"venue-checkin/internal/plans"
	"venue-checkin/internal/scan"
	"venue-checkin/internal/watch"
)

// crmFixture is a stand-in for the remote member directory. It serves the
// vendor's search endpoints for every module the pipeline touches.
type crmFixture struct {
	members       []map[string]interface{}
	contacts      []map[string]interface{}
	subscriptions []map[string]interface{}
	orders        []map[string]interface{}

	// criteria seen per module, in call order
	calls map[string][]string
}

func newCRMFixture() *crmFixture {
	return &crmFixture{calls: make(map[string][]string)}
}

func (f *crmFixture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[1] != "search" {
			http.NotFound(w, r)
			return
		}
		module := parts[0]
		f.calls[module] = append(f.calls[module], r.URL.Query().Get("criteria"))

		var records []map[string]interface{}
		switch module {
		case "Members":
			records = f.members
		case "Contacts":
			records = f.contacts
		case "Subscriptions":
			records = f.subscriptions
		case "Plan_Orders":
			records = f.orders
		}

		if len(records) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": records,
			"info": map[string]interface{}{"count": len(records), "more_records": false},
		})
	})
}

// harness wires the full stack against the fixture: real reader, real CRM
// client, real matcher with the production source ordering, real resolver.
type harness struct {
	svc        *api.Service
	exportPath string
	fixture    *crmFixture
}

func newHarness(t *testing.T, fixture *crmFixture) *harness {
	t.Helper()

	crmServer := httptest.NewServer(fixture.handler())
	t.Cleanup(crmServer.Close)

	cfg := &config.CRMConfig{
		BaseURL:    crmServer.URL,
		OAuthToken: "test-token",
		Timeout:    5,
		PageSize:   200,
	}
	cfg.Modules.Members = "Members"
	cfg.Modules.Contacts = "Contacts"
	cfg.Modules.Subscriptions = "Subscriptions"
	cfg.Modules.PlanOrders = "Plan_Orders"

	log := logger.NewTestLogger(t)
	client := crm.NewClient(cfg, log)

	exportPath := filepath.Join(t.TempDir(), "scan-export.csv")
	reader := scan.NewReader(exportPath, log)

	sources := []match.Source{
		match.NewDirectorySource("members", cfg.Modules.Members, client, cfg.PageSize),
		match.NewDirectorySource("contacts", cfg.Modules.Contacts, client, cfg.PageSize),
		match.NewWordSource("search", cfg.Modules.Contacts, client, cfg.PageSize, log),
	}
	matcher := match.NewMatcher(sources, nil, log)
	resolver := plans.NewResolver(client, cfg.Modules.Subscriptions, cfg.Modules.PlanOrders, cfg.PageSize, log)

	return &harness{
		svc:        api.NewService(reader, matcher, resolver, nil, log),
		exportPath: exportPath,
		fixture:    fixture,
	}
}

func (h *harness) writeExport(t *testing.T, rows ...string) {
	t.Helper()
	content := "FIRST NAME,LAST NAME,FULL NAME,BIRTHDATE,AGE,DRV LC NO,EXPIRES ON,ISSUED ON,CREATED,Image1\n" +
		strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(h.exportPath, []byte(content), 0o644))
}

func memberRecord(id, first, last, dob string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"First_Name":    first,
		"Last_Name":     last,
		"Date_of_Birth": dob,
		"Email":         strings.ToLower(first) + "@example.com",
	}
}

func TestE2E_ScanToMatch(t *testing.T) {
	fixture := newCRMFixture()
	fixture.members = []map[string]interface{}{
		memberRecord("mem-001", "John", "Smith", "1985-03-22"),
	}
	h := newHarness(t, fixture)
	h.writeExport(t,
		"JANE,DOE,JANE DOE,07-04-1992,31,D0,,,05/30/2024 09:00,",
		"JOHN,SMITH,JOHN SMITH,03-22-1985,39,D1,,,06/01/2024 10:00,",
	)

	scanEnv := h.svc.LatestScan()
	require.True(t, scanEnv.Success)
	assert.Equal(t, "JOHN", scanEnv.Record.FirstName)
	assert.Equal(t, "06/01/2024 10:00", scanEnv.Record.CapturedAt)

	matchEnv := h.svc.FindMember(context.Background(), api.FindMemberRequest{
		FirstName:   scanEnv.Record.FirstName,
		LastName:    scanEnv.Record.LastName,
		DateOfBirth: scanEnv.Record.DateOfBirth,
	})
	require.True(t, matchEnv.Success)
	assert.Equal(t, "members", matchEnv.Source)
	require.Len(t, matchEnv.Candidates, 1)
	assert.Equal(t, "mem-001", matchEnv.Candidates[0].ID)
	assert.Equal(t, "John", matchEnv.Candidates[0].FirstName)

	// The primary source answered, so no fallback calls were made.
	assert.Len(t, fixture.calls["Members"], 1)
	assert.Empty(t, fixture.calls["Contacts"])

	// Criteria carries the normalized name and DOB.
	criteria := fixture.calls["Members"][0]
	assert.Contains(t, criteria, "First_Name:equals:John")
	assert.Contains(t, criteria, "Last_Name:equals:Smith")
	assert.Contains(t, criteria, "Date_of_Birth:equals:1985-03-22")
}

func TestE2E_SourceFallbackOrder(t *testing.T) {
	fixture := newCRMFixture()
	fixture.contacts = []map[string]interface{}{
		memberRecord("con-001", "John", "Smith", "1985-03-22"),
	}
	h := newHarness(t, fixture)

	env := h.svc.FindMember(context.Background(), api.FindMemberRequest{
		FirstName:   "JOHN",
		LastName:    "SMITH",
		DateOfBirth: "03-22-1985",
	})

	require.True(t, env.Success)
	assert.Equal(t, "contacts", env.Source)
	require.Len(t, env.Candidates, 1)
	assert.Equal(t, "con-001", env.Candidates[0].ID)

	// Members was tried first and came up empty before Contacts answered.
	assert.Len(t, fixture.calls["Members"], 1)
	assert.Len(t, fixture.calls["Contacts"], 1)
}

func TestE2E_NoMatchIsSuccess(t *testing.T) {
	h := newHarness(t, newCRMFixture())

	env := h.svc.FindMember(context.Background(), api.FindMemberRequest{
		FirstName: "NOBODY",
		LastName:  "HERE",
	})

	assert.True(t, env.Success)
	assert.Empty(t, env.Candidates)
	assert.Empty(t, env.ErrorCode)
}

func TestE2E_PlansForMatchedMember(t *testing.T) {
	fixture := newCRMFixture()
	fixture.subscriptions = []map[string]interface{}{
		{"id": "sub-001", "Plan_Name": "Gold Annual", "Status": "active", "Start_Date": "2024-01-01", "End_Date": "2024-12-31"},
		{"id": "sub-002", "Status": "expired"},
	}
	fixture.orders = []map[string]interface{}{
		{"id": "ord-001", "Plan_Name": "Gold Annual", "Status": "paid", "Ordered_On": "2023-12-20"},
	}
	h := newHarness(t, fixture)

	plansEnv := h.svc.Plans(context.Background(), "mem-001")
	require.True(t, plansEnv.Success)
	require.Len(t, plansEnv.Plans, 2)
	assert.Equal(t, "Gold Annual", plansEnv.Plans[0].Name)
	assert.Equal(t, plans.UnnamedPlan, plansEnv.Plans[1].Name)
	assert.Contains(t, fixture.calls["Subscriptions"][0], "Member_Id:equals:mem-001")

	ordersEnv := h.svc.PlanOrders(context.Background(), "mem-001")
	require.True(t, ordersEnv.Success)
	require.Len(t, ordersEnv.Orders, 1)
	assert.Equal(t, "paid", ordersEnv.Orders[0].Status)
}

func TestE2E_WatchTriggersPipeline(t *testing.T) {
	fixture := newCRMFixture()
	fixture.members = []map[string]interface{}{
		memberRecord("mem-001", "John", "Smith", "1985-03-22"),
	}
	h := newHarness(t, fixture)
	h.writeExport(t, "JANE,DOE,JANE DOE,07-04-1992,31,D0,,,05/30/2024 09:00,")

	watcher := watch.New(h.exportPath, 50*time.Millisecond, h.svc.RunPipeline, logger.NewTestLogger(t))
	h.svc.SetWatcher(watcher)

	env := h.svc.StartWatch(context.Background())
	require.True(t, env.Success)
	defer h.svc.StopWatch()

	events := h.svc.WatchEvents()
	require.NotNil(t, events)

	// A new scan lands in the export file.
	h.writeExport(t,
		"JANE,DOE,JANE DOE,07-04-1992,31,D0,,,05/30/2024 09:00,",
		"JOHN,SMITH,JOHN SMITH,03-22-1985,39,D1,,,06/01/2024 10:00,",
	)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != watch.EventNewScan {
				continue
			}
			payload, ok := ev.Payload.(*api.PipelinePayload)
			require.True(t, ok)
			assert.Equal(t, "JOHN", payload.Record.FirstName)
			assert.Equal(t, "members", payload.Match.Source)
			require.Len(t, payload.Match.Candidates, 1)
			assert.Equal(t, "mem-001", payload.Match.Candidates[0].ID)
			return
		case <-deadline:
			t.Fatal("timed out waiting for newscan event")
		}
	}
}
