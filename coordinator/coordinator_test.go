// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/cla-access/events"
	"github.com/danielhkuo/cla-access/models"
)

func newTestFlow(t *testing.T, f *fakeCLA, id Identity) (*Coordinator, *events.Channel) {
	t.Helper()
	ch := events.NewChannel(32)
	c := New(Params{
		ProjectID:    "p-1",
		RepositoryID: "r-1",
		UserID:       "gh-1",
		CompanyID:    "c-1",
		Identity:     id,
	}, f.services(), ch, WithFlowID("flow-1"))
	c.Start(context.Background())
	waitReady(t, c)
	return c, ch
}

func TestStart_AnonymousUsesPlainLookup(t *testing.T) {
	f := newFakeCLA()
	c, _ := newTestFlow(t, f, Anonymous{})

	assert.Equal(t, 1, f.called("GetUser"))
	assert.Equal(t, 0, f.called("GetUserWithAuthToken"))
	assert.Equal(t, 1, f.called("GetProject"))
	assert.Equal(t, 1, f.called("GetCompany"))
	assert.Equal(t, 1, f.called("GetCompanyProjectSignatures"))

	snap := c.Snapshot()
	require.NotNil(t, snap.Project)
	require.NotNil(t, snap.Company)
	assert.Equal(t, "Kubernetes", snap.Project.ProjectName)
	assert.Equal(t, "Acme", snap.Company.CompanyName)
	assert.Equal(t, []string{"dev@example.com"}, snap.UserEmails)
	assert.False(t, snap.Authenticated)
	assert.False(t, snap.Loading)
}

func TestStart_AuthenticatedForwardsToken(t *testing.T) {
	f := newFakeCLA()
	c, _ := newTestFlow(t, f, Authenticated{Token: "gerrit-token"})

	assert.Equal(t, 0, f.called("GetUser"))
	assert.Equal(t, 1, f.called("GetUserWithAuthToken"))
	assert.Equal(t, []string{"gerrit-token"}, f.tokens)
	assert.True(t, c.Snapshot().Authenticated)
}

func TestStart_NilIdentityIsAnonymous(t *testing.T) {
	f := newFakeCLA()
	newTestFlow(t, f, nil)
	assert.Equal(t, 1, f.called("GetUser"))
}

func TestStart_MergesLFEmail(t *testing.T) {
	f := newFakeCLA()
	f.user = &models.User{UserEmails: []string{"a@example.com", "b@example.com"}, LFEmail: "b@example.com"}
	c, _ := newTestFlow(t, f, Anonymous{})
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, c.Snapshot().UserEmails)

	f = newFakeCLA()
	f.user = &models.User{LFEmail: "lf@linuxfoundation.org"}
	c, _ = newTestFlow(t, f, Anonymous{})
	assert.Equal(t, []string{"lf@linuxfoundation.org"}, c.Snapshot().UserEmails)
}

func TestStart_FailuresAreIndependent(t *testing.T) {
	f := newFakeCLA()
	f.projectErr = errors.New("project service down")
	f.sigErr = errors.New("signatures timed out")
	c, ch := newTestFlow(t, f, Anonymous{})

	snap := c.Snapshot()
	assert.Nil(t, snap.Project)
	assert.NotNil(t, snap.Company)
	assert.Equal(t, []string{"dev@example.com"}, snap.UserEmails)
	assert.Empty(t, snap.Managers)
	assert.False(t, snap.Loading)

	evts := drain(ch)
	require.Len(t, evts, 2)
	ops := map[string]string{}
	for _, e := range evts {
		assert.Equal(t, events.KindFetchFailed, e.Kind)
		assert.Equal(t, "flow-1", e.FlowID)
		ops[e.Operation] = e.Detail()
	}
	assert.Equal(t, "project service down", ops[events.OpGetProject])
	assert.Equal(t, "signatures timed out", ops[events.OpGetSignatures])
}

func TestStart_IsIdempotent(t *testing.T) {
	f := newFakeCLA()
	c, _ := newTestFlow(t, f, Anonymous{})
	c.Start(context.Background())
	assert.Equal(t, 1, f.called("GetProject"))
}

func TestManagersFromFirstCorporateSignature(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		{SignatureID: "icla", SignatureType: models.SignatureTypeIndividual,
			SignatureACL: []models.ACLEntry{{UserID: "x", Username: "Xavier"}}},
		corporate(
			models.ACLEntry{UserID: "m1", Username: "carol", LFEmail: "carol@acme.com"},
			models.ACLEntry{UserID: "m2", Username: "Bob", LFEmail: "bob@acme.com"},
			models.ACLEntry{UserID: "m3", Username: "alice", LFEmail: "alice@acme.com"},
			models.ACLEntry{UserID: "m4", Username: "Dave", LFEmail: "dave@acme.com"},
		),
		{SignatureID: "ccla-2", SignatureType: models.SignatureTypeCorporate,
			SignatureACL: []models.ACLEntry{{UserID: "z", Username: "Zed"}}},
	}}
	c, _ := newTestFlow(t, f, Anonymous{})

	managers := c.Managers()
	require.Len(t, managers, 4)
	names := make([]string, len(managers))
	for i, m := range managers {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"alice", "Bob", "carol", "Dave"}, names)
	assert.Equal(t, "ccla-1", c.Snapshot().Signature.SignatureID)
}

func TestNoCorporateSignature(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		{SignatureID: "icla", SignatureType: models.SignatureTypeIndividual},
	}}
	c, _ := newTestFlow(t, f, Anonymous{})

	assert.Empty(t, c.Managers())
	assert.Nil(t, c.Snapshot().Signature)

	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com")}))
	_, err := c.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []models.FieldError{{Field: FieldManagerMode, Message: msgModeRequired}}, verr.Errors)

	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{
		RecipientName:  ptr("Pat Manager"),
		RecipientEmail: ptr("pat@acme.com"),
	}))
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	c.Wait()

	require.Len(t, f.payloads, 1)
	assert.Equal(t, "Pat Manager", f.payloads[0].RecipientName)
	assert.Equal(t, "pat@acme.com", f.payloads[0].RecipientEmail)
}

func TestSetModeClearsOtherModeFields(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		corporate(models.ACLEntry{UserID: "m1", Username: "Bob", LFEmail: "bob@acme.com"}),
	}}
	c, _ := newTestFlow(t, f, Anonymous{})

	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{ManagerID: ptr("m1")}))
	assert.Equal(t, "m1", c.Snapshot().Form.ManagerID)

	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	form := c.Snapshot().Form
	assert.Empty(t, form.ManagerID)

	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{
		RecipientName:  ptr("Someone"),
		RecipientEmail: ptr("someone@acme.com"),
	}))
	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	form = c.Snapshot().Form
	assert.Empty(t, form.RecipientName)
	assert.Empty(t, form.RecipientEmail)
	assert.Equal(t, models.ManagerModeSelectExisting, form.ManagerMode)
}

func TestUpdateFormIgnoresInactiveModeFields(t *testing.T) {
	f := newFakeCLA()
	c, _ := newTestFlow(t, f, Anonymous{})

	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{RecipientName: ptr("stale")}))
	assert.Empty(t, c.Snapshot().Form.RecipientName)

	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{ManagerID: ptr("m1")}))
	assert.Empty(t, c.Snapshot().Form.ManagerID)
}

func TestBuildPayloadResolvesRecipient(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		corporate(models.ACLEntry{UserID: "m1", Username: "Bob", LFEmail: "bob@acme.com"}),
	}}
	c, _ := newTestFlow(t, f, Anonymous{})

	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com"), Message: ptr("hi")}))
	p := c.BuildPayload()
	assert.Empty(t, p.RecipientName)
	assert.Empty(t, p.RecipientEmail)
	assert.Equal(t, "hi", p.Message)

	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{ManagerID: ptr("m1")}))
	p = c.BuildPayload()
	assert.Equal(t, "Bob", p.RecipientName)
	assert.Equal(t, "bob@acme.com", p.RecipientEmail)

	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{ManagerID: ptr("nobody")}))
	p = c.BuildPayload()
	assert.Empty(t, p.RecipientEmail)
	assert.NotEmpty(t, c.Validate())

	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{RecipientName: ptr("Pat"), RecipientEmail: ptr("pat@acme.com")}))
	p = c.BuildPayload()
	assert.Equal(t, models.MessagePayload{
		CompanyID:      "c-1",
		UserID:         "gh-1",
		UserEmail:      "dev@example.com",
		ProjectID:      "p-1",
		Message:        "hi",
		RecipientName:  "Pat",
		RecipientEmail: "pat@acme.com",
	}, p)
	assert.Empty(t, c.Validate())
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	c, _ := newTestFlow(t, newFakeCLA(), Anonymous{})
	assert.ErrorIs(t, c.SetMode("select manager"), ErrInvalidMode)
	assert.ErrorIs(t, c.SetMode(models.ManagerModeUnset), ErrInvalidMode)
}

func TestSubmit_ModeUnsetAlwaysFails(t *testing.T) {
	forms := []models.UpdateFormRequest{
		{UserEmail: ptr("dev@example.com")},
		{UserEmail: ptr("dev@example.com"), Message: ptr("please"), RecipientName: ptr("Bob"), RecipientEmail: ptr("bob@acme.com")},
		{UserEmail: ptr("dev@example.com"), ManagerID: ptr("m1")},
	}
	for _, patch := range forms {
		f := newFakeCLA()
		c, ch := newTestFlow(t, f, Anonymous{})
		require.NoError(t, c.UpdateForm(patch))

		_, err := c.Submit(context.Background())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Errors, models.FieldError{Field: FieldManagerMode, Message: msgModeRequired})
		assert.Equal(t, 0, f.called("PostUserMessageToCompanyManager"))
		assert.Equal(t, []events.Kind{events.KindValidationFailed}, kinds(drain(ch)))
	}
}

func TestSubmit_EmailRules(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  []models.FieldError
	}{
		{"missing", "", []models.FieldError{{Field: FieldUserEmail, Message: msgEmailRequired}}},
		{"no at sign", "dev.example.com", []models.FieldError{{Field: FieldUserEmail, Message: msgEmailInvalid}}},
		{"valid", "dev@example.com", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestFlow(t, newFakeCLA(), Anonymous{})
			require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
			require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr(tt.email)}))
			assert.Equal(t, tt.want, c.Validate())
		})
	}
}

func TestSubmit_UnknownManagerRejected(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		corporate(models.ACLEntry{UserID: "m1", Username: "Bob"}),
	}}
	c, _ := newTestFlow(t, f, Anonymous{})
	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com"), ManagerID: ptr("ghost")}))

	_, err := c.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []models.FieldError{{Field: FieldManager, Message: msgManagerUnknown}}, verr.Errors)
}

func TestSubmit_SelectedManagerScenario(t *testing.T) {
	f := newFakeCLA()
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		corporate(
			models.ACLEntry{UserID: "m-bob", Username: "Bob", LFEmail: "bob@acme.com"},
			models.ACLEntry{UserID: "m-alice", Username: "alice", LFEmail: "alice@acme.com"},
		),
	}}
	c, ch := newTestFlow(t, f, Anonymous{})

	managers := c.Managers()
	require.Len(t, managers, 2)
	assert.Equal(t, "alice", managers[0].Name)
	assert.Equal(t, "Bob", managers[1].Name)

	require.NoError(t, c.SetMode(models.ManagerModeSelectExisting))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{
		UserEmail: ptr("dev@example.com"),
		Message:   ptr("Please add me"),
		ManagerID: ptr(managers[0].UserID),
	}))

	conf, err := c.Submit(context.Background())
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, ConfirmationTitle, conf.Title)
	assert.Equal(t, anonymousConfirmation, conf.Message)

	require.Len(t, f.payloads, 1)
	assert.Equal(t, models.MessagePayload{
		CompanyID:      "c-1",
		UserID:         "gh-1",
		UserEmail:      "dev@example.com",
		ProjectID:      "p-1",
		Message:        "Please add me",
		RecipientName:  "alice",
		RecipientEmail: "alice@acme.com",
	}, f.payloads[0])
	assert.Equal(t, []models.WhitelistPayload{{UserID: "gh-1"}}, f.listed)
	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindWhitelistRecorded}, kinds(drain(ch)))
	assert.True(t, c.Snapshot().Submitted)
}

func TestSubmit_AuthenticatedWording(t *testing.T) {
	c, _ := newTestFlow(t, newFakeCLA(), Authenticated{Token: "tok"})
	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com")}))

	conf, err := c.Submit(context.Background())
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, authenticatedConfirmation, conf.Message)
}

func TestSubmit_WhitelistFailureStillConfirms(t *testing.T) {
	f := newFakeCLA()
	f.whitelistErr = errors.New("whitelist backend unavailable")
	c, ch := newTestFlow(t, f, Anonymous{})
	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com")}))

	conf, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conf)
	assert.Equal(t, ConfirmationTitle, conf.Title)
	c.Wait()

	evts := drain(ch)
	require.Equal(t, []events.Kind{events.KindSubmitted, events.KindWhitelistFailed}, kinds(evts))
	assert.Equal(t, events.OpWhitelist, evts[1].Operation)
	assert.Equal(t, "whitelist backend unavailable", evts[1].Detail())
	assert.True(t, c.Snapshot().Submitted)
}

func TestSubmit_PrimaryFailureAllowsRetry(t *testing.T) {
	f := newFakeCLA()
	f.requestErr = errors.New("502 bad gateway")
	c, ch := newTestFlow(t, f, Anonymous{})
	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com")}))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.Submitted)
	assert.Equal(t, 0, f.called("PostCCLAWhitelistRequest"))
	assert.Equal(t, []events.Kind{events.KindSubmitFailed}, kinds(drain(ch)))

	f.mu.Lock()
	f.requestErr = nil
	f.mu.Unlock()
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, 1, f.called("PostCCLAWhitelistRequest"))
}

func TestSubmit_OnlyOnce(t *testing.T) {
	f := newFakeCLA()
	c, _ := newTestFlow(t, f, Anonymous{})
	require.NoError(t, c.SetMode(models.ManagerModeEnterManually))
	require.NoError(t, c.UpdateForm(models.UpdateFormRequest{UserEmail: ptr("dev@example.com")}))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, c.SetMode(models.ManagerModeSelectExisting), ErrAlreadySubmitted)
	c.Wait()
	assert.Equal(t, 1, f.called("PostUserMessageToCompanyManager"))
}

func TestClose_DiscardsLateResults(t *testing.T) {
	f := newFakeCLA()
	f.sigGate = make(chan struct{})
	f.signatures = &models.SignatureList{Signatures: []models.Signature{
		corporate(models.ACLEntry{UserID: "m1", Username: "Bob"}),
	}}
	ch := events.NewChannel(8)
	c := New(Params{ProjectID: "p-1", UserID: "gh-1", CompanyID: "c-1"}, f.services(), ch)
	c.Start(context.Background())

	c.Close()
	close(f.sigGate)
	waitReady(t, c)

	snap := c.Snapshot()
	assert.True(t, snap.Dismissed)
	assert.Empty(t, snap.Managers)
	assert.Nil(t, snap.Signature)

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []events.Kind{events.KindDismissed}, kinds(drain(ch)))
}

func TestCloseBeforeStart(t *testing.T) {
	f := newFakeCLA()
	c := New(Params{ProjectID: "p-1"}, f.services(), nil)
	c.Close()
	c.Close()
	c.Start(context.Background())
	waitReady(t, c)
	assert.Equal(t, 0, f.called("GetProject"))
}
