package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"smartfin/internal/amqp"
	"smartfin/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Activity", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("New() error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		if had {
			defer os.Setenv(key, old)
		}
	}

	_, err := New(context.Background(), "sheet-id", "Activity", nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("New() error = %v", err)
	}
}

func TestClient_Append(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  struct {
			Values [][]any `json:"values"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sheet-123","updates":{"updatedRange":"Activity!A7:F7","updatedRows":1}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "sheet-123", "Activity", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg := &amqp.ActivityMessage{
		Kind:       amqp.TransactionCreated,
		UserID:     "u1",
		EntityID:   "t1",
		Title:      "Groceries",
		Amount:     core.Money{Cents: 123450},
		OccurredAt: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
	}

	ref, err := c.Append(context.Background(), msg)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Activity!A7:F7" {
		t.Errorf("Append() ref = %q", ref)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-123/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 6 {
		t.Fatalf("values = %v", gotBody.Values)
	}
	row := gotBody.Values[0]
	if row[0] != "2024-03-05T09:30:00Z" || row[1] != "transaction.created" || row[5] != "1234.50" {
		t.Errorf("row = %v", row)
	}
}

func TestClient_AppendUninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.Append(context.Background(), &amqp.ActivityMessage{}); err == nil {
		t.Error("Append() without service should fail")
	}
}
