// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/cla-access/cliparse"
	"github.com/danielhkuo/cla-access/db"
	"github.com/danielhkuo/cla-access/models"
)

// TestDBURL is the connection string for the test database
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh in-memory SQLite database with the full schema.
// The connection is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration pointing at apiURL
func GetTestConfig(apiURL string) cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   TestDBURL,
		DatabaseType:  db.TypeSQLite,
		FlowKeySalt:   "test-flow-salt",
		FlowIdleTTL:   30 * time.Minute,
		CLAAPIURL:     apiURL,
		CLAAPITimeout: 5 * time.Second,
		CLAAPIBurst:   10,
	}
}

// Call is one request received by the fake CLA backend.
type Call struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// FakeCLA is an httptest server that answers the CLA backend routes from
// canned data. SetFail forces an error status for a route.
type FakeCLA struct {
	Server *httptest.Server

	mu         sync.Mutex
	Users      map[string]models.User
	Projects   map[string]models.Project
	Companies  map[string]models.Company
	Signatures map[string]models.SignatureList // keyed by companyID + "/" + projectID
	Fail       map[string]int
	calls      []Call
}

// Route patterns served by FakeCLA, usable as Fail keys.
const (
	RouteGetUser       = "GET /v2/user/{id}"
	RouteGetUserAuth   = "GET /v1/user/{id}"
	RouteGetProject    = "GET /v2/project/{id}"
	RouteGetCompany    = "GET /v2/company/{id}"
	RouteGetSignatures = "GET /v1/signatures/company/{cid}/project/{pid}"
	RoutePostMessage   = "POST /v2/user/{uid}/request-company-whitelist/{cid}"
	RoutePostWhitelist = "POST /v3/company/{cid}/ccla-whitelist-requests/{pid}"
)

// NewFakeCLA starts a fake CLA backend. It is closed when the test ends.
func NewFakeCLA(t *testing.T) *FakeCLA {
	t.Helper()

	f := &FakeCLA{
		Users:      make(map[string]models.User),
		Projects:   make(map[string]models.Project),
		Companies:  make(map[string]models.Company),
		Signatures: make(map[string]models.SignatureList),
		Fail:       make(map[string]int),
	}

	mux := http.NewServeMux()
	f.handle(mux, RouteGetUser, func(r *http.Request) (any, bool) {
		u, ok := f.Users[r.PathValue("id")]
		return u, ok
	})
	f.handle(mux, RouteGetUserAuth, func(r *http.Request) (any, bool) {
		u, ok := f.Users[r.PathValue("id")]
		return u, ok
	})
	f.handle(mux, RouteGetProject, func(r *http.Request) (any, bool) {
		p, ok := f.Projects[r.PathValue("id")]
		return p, ok
	})
	f.handle(mux, RouteGetCompany, func(r *http.Request) (any, bool) {
		c, ok := f.Companies[r.PathValue("id")]
		return c, ok
	})
	f.handle(mux, RouteGetSignatures, func(r *http.Request) (any, bool) {
		s, ok := f.Signatures[r.PathValue("cid")+"/"+r.PathValue("pid")]
		if !ok {
			return models.SignatureList{Signatures: []models.Signature{}}, true
		}
		return s, true
	})
	f.handle(mux, RoutePostMessage, func(r *http.Request) (any, bool) {
		return map[string]string{"status": "sent"}, true
	})
	f.handle(mux, RoutePostWhitelist, func(r *http.Request) (any, bool) {
		return nil, true
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeCLA) handle(mux *http.ServeMux, pattern string, answer func(*http.Request) (any, bool)) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		f.mu.Lock()
		f.calls = append(f.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body.Bytes(),
		})
		status := f.Fail[pattern]
		var (
			out any
			ok  bool
		)
		if status == 0 {
			out, ok = answer(r)
		}
		f.mu.Unlock()

		switch {
		case status != 0:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(status)})
		case !ok:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "not found"})
		case out == nil:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(out)
		}
	})
}

// URL is the base URL of the fake backend.
func (f *FakeCLA) URL() string {
	return f.Server.URL
}

// SetFail makes pattern answer with status; 0 restores normal answers.
func (f *FakeCLA) SetFail(pattern string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.Fail, pattern)
		return
	}
	f.Fail[pattern] = status
}

// Calls returns a copy of the requests received so far.
func (f *FakeCLA) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the requests received with the given method and path.
func (f *FakeCLA) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
