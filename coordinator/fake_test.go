// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/cla-access/events"
	"github.com/danielhkuo/cla-access/models"
)

// fakeCLA implements every service interface with canned responses.
type fakeCLA struct {
	mu sync.Mutex

	user       *models.User
	userErr    error
	project    *models.Project
	projectErr error
	company    *models.Company
	companyErr error
	signatures *models.SignatureList
	sigErr     error
	sigGate    chan struct{}

	requestErr    error
	requestGate   chan struct{}
	whitelistErr  error
	whitelistGate chan struct{}

	calls    []string
	tokens   []string
	payloads []models.MessagePayload
	listed   []models.WhitelistPayload
}

func newFakeCLA() *fakeCLA {
	return &fakeCLA{
		user:       &models.User{UserID: "gh-1", UserEmails: []string{"dev@example.com"}},
		project:    &models.Project{ProjectID: "p-1", ProjectName: "Kubernetes"},
		company:    &models.Company{CompanyID: "c-1", CompanyName: "Acme"},
		signatures: &models.SignatureList{},
	}
}

func (f *fakeCLA) services() Services {
	return Services{Identity: f, Projects: f, Companies: f, Signatures: f, Requests: f, Whitelist: f}
}

func (f *fakeCLA) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCLA) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCLA) GetUser(ctx context.Context, userID string) (*models.User, error) {
	f.record("GetUser")
	return f.user, f.userErr
}

func (f *fakeCLA) GetUserWithAuthToken(ctx context.Context, userID, token string) (*models.User, error) {
	f.record("GetUserWithAuthToken")
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return f.user, f.userErr
}

func (f *fakeCLA) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	f.record("GetProject")
	return f.project, f.projectErr
}

func (f *fakeCLA) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	f.record("GetCompany")
	return f.company, f.companyErr
}

func (f *fakeCLA) GetCompanyProjectSignatures(ctx context.Context, companyID, projectID string) (*models.SignatureList, error) {
	f.record("GetCompanyProjectSignatures")
	if f.sigGate != nil {
		<-f.sigGate
	}
	return f.signatures, f.sigErr
}

func (f *fakeCLA) PostUserMessageToCompanyManager(ctx context.Context, userID, companyID string, payload models.MessagePayload) (models.APIResponse, error) {
	f.record("PostUserMessageToCompanyManager")
	if f.requestGate != nil {
		<-f.requestGate
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	err := f.requestErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return models.APIResponse{"status": "sent"}, nil
}

func (f *fakeCLA) PostCCLAWhitelistRequest(ctx context.Context, companyID, projectID string, payload models.WhitelistPayload) (models.APIResponse, error) {
	if f.whitelistGate != nil {
		<-f.whitelistGate
	}
	f.record("PostCCLAWhitelistRequest")
	f.mu.Lock()
	f.listed = append(f.listed, payload)
	f.mu.Unlock()
	if f.whitelistErr != nil {
		return nil, f.whitelistErr
	}
	return models.APIResponse{}, nil
}

func waitReady(t *testing.T, c *Coordinator) {
	t.Helper()
	select {
	case <-c.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("initial fetches did not settle")
	}
}

// drain returns every event currently buffered in ch.
func drain(ch *events.Channel) []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-ch.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func kinds(evts []events.Event) []events.Kind {
	out := make([]events.Kind, len(evts))
	for i, e := range evts {
		out[i] = e.Kind
	}
	return out
}

func corporate(acl ...models.ACLEntry) models.Signature {
	return models.Signature{SignatureID: "ccla-1", SignatureType: models.SignatureTypeCorporate, SignatureACL: acl}
}

func ptr(s string) *string {
	return &s
}
