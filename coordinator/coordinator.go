// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/cla-access/claapi"
	"github.com/danielhkuo/cla-access/events"
	"github.com/danielhkuo/cla-access/models"
)

var (
	ErrInvalidMode      = errors.New("manager mode must be select-existing or enter-manually")
	ErrAlreadySubmitted = errors.New("request already submitted")
	ErrSubmitInProgress = errors.New("submission in progress")
	ErrClosed           = errors.New("flow dismissed")
	ErrUnknownIdentity  = errors.New("unknown identity variant")
)

// Confirmation wording
const (
	ConfirmationTitle = "E-Mail Successfully Sent!"

	authenticatedConfirmation = "Thank you for contacting your company's administrators. Once the CLA is signed and you are authorized, please navigate to the Agreements tab in the Gerrit Settings page and restart the CLA signing process"
	anonymousConfirmation     = "Thank you for contacting your company's administrators. Once the CLA is signed and you are authorized, you will have to complete the CLA process from your existing pull request."
)

// Params are the initialization parameters supplied by the console.
type Params struct {
	ProjectID    string
	RepositoryID string
	UserID       string
	CompanyID    string
	Identity     Identity
}

// Coordinator drives a single request-access flow: it loads reference data,
// derives the manager list, validates the form and submits it once.
type Coordinator struct {
	id       string
	params   Params
	svc      Services
	reporter events.Reporter
	logger   *slog.Logger

	mu          sync.Mutex
	project     *models.Project
	company     *models.Company
	userEmails  []string
	signature   *models.Signature
	managers    []models.Manager
	form        models.RequestForm
	pending     int
	submitting  bool
	submitted   bool
	closed      bool
	cancelFetch context.CancelFunc

	startOnce sync.Once
	ready     chan struct{}
	bg        sync.WaitGroup
}

type Option func(*Coordinator)

// WithFlowID tags logs and events with the flow identifier.
func WithFlowID(id string) Option {
	return func(c *Coordinator) { c.id = id }
}

// New creates a coordinator. A nil identity is treated as Anonymous and a
// nil reporter discards events.
func New(params Params, svc Services, reporter events.Reporter, opts ...Option) *Coordinator {
	if params.Identity == nil {
		params.Identity = Anonymous{}
	}
	if reporter == nil {
		reporter = events.Discard
	}
	c := &Coordinator{
		params:     params,
		svc:        svc,
		reporter:   reporter,
		logger:     slog.Default(),
		userEmails: []string{},
		managers:   []models.Manager{},
		ready:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("flow_id", c.id)
	return c
}

func (c *Coordinator) ID() string {
	return c.id
}

// Start issues the four initial fetches concurrently. Each one fills in its
// own part of the state as it arrives; a failure leaves that part empty and
// is reported, never returned. Calling Start more than once has no effect.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			close(c.ready)
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		c.cancelFetch = cancel
		fetches := []func(context.Context){
			c.loadUser,
			c.loadProject,
			c.loadCompany,
			c.loadSignatures,
		}
		c.pending = len(fetches)
		c.mu.Unlock()

		var wg sync.WaitGroup
		for _, fetch := range fetches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer c.settle()
				fetch(ctx)
			}()
		}
		go func() {
			wg.Wait()
			cancel()
			close(c.ready)
		}()
	})
}

// Ready is closed once every initial fetch has succeeded, failed, or been
// abandoned.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

func (c *Coordinator) settle() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
}

func (c *Coordinator) lookupUser(ctx context.Context) (*models.User, error) {
	switch id := c.params.Identity.(type) {
	case Authenticated:
		return c.svc.Identity.GetUserWithAuthToken(ctx, c.params.UserID, id.Token)
	case Anonymous:
		return c.svc.Identity.GetUser(ctx, c.params.UserID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownIdentity, id)
	}
}

func (c *Coordinator) loadUser(ctx context.Context) {
	user, err := c.lookupUser(ctx)
	if err != nil {
		c.fetchFailed(ctx, events.OpGetUser, err)
		return
	}
	if user == nil {
		return
	}
	emails := candidateEmails(user)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.userEmails = emails
}

func (c *Coordinator) loadProject(ctx context.Context) {
	project, err := c.svc.Projects.GetProject(ctx, c.params.ProjectID)
	if err != nil {
		c.fetchFailed(ctx, events.OpGetProject, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.project = project
}

func (c *Coordinator) loadCompany(ctx context.Context) {
	company, err := c.svc.Companies.GetCompany(ctx, c.params.CompanyID)
	if err != nil {
		c.fetchFailed(ctx, events.OpGetCompany, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.company = company
}

func (c *Coordinator) loadSignatures(ctx context.Context) {
	list, err := c.svc.Signatures.GetCompanyProjectSignatures(ctx, c.params.CompanyID, c.params.ProjectID)
	if err != nil {
		c.fetchFailed(ctx, events.OpGetSignatures, err)
		return
	}
	if list == nil {
		return
	}

	sig := authoritativeSignature(list.Signatures)
	c.logger.Debug("signatures loaded",
		"project_id", c.params.ProjectID,
		"company_id", c.params.CompanyID,
		"count", len(list.Signatures),
		"has_ccla", sig != nil,
	)
	managers := []models.Manager{}
	if sig != nil {
		managers = managersFromACL(sig.SignatureACL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.signature = sig
	c.managers = managers
}

func (c *Coordinator) fetchFailed(ctx context.Context, op string, err error) {
	if c.isClosed() {
		c.logger.Debug("fetch abandoned", "operation", op, "error", err)
		return
	}
	level := slog.LevelWarn
	if claapi.IsNotFound(err) {
		level = slog.LevelInfo
	}
	c.logger.Log(ctx, level, "fetch failed",
		"operation", op,
		"project_id", c.params.ProjectID,
		"company_id", c.params.CompanyID,
		"not_found", claapi.IsNotFound(err),
		"error", err,
	)
	c.report(ctx, events.KindFetchFailed, op, err)
}

func (c *Coordinator) report(ctx context.Context, kind events.Kind, op string, err error) {
	c.reporter.Report(ctx, events.Event{
		FlowID:    c.id,
		Kind:      kind,
		Operation: op,
		Err:       err,
		At:        time.Now(),
	})
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// editableLocked reports why the form cannot change, if it cannot. Must hold mu.
func (c *Coordinator) editableLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.submitted:
		return ErrAlreadySubmitted
	case c.submitting:
		return ErrSubmitInProgress
	}
	return nil
}

// SetMode switches the manager selection mode and blanks the fields that
// belong to the other mode.
func (c *Coordinator) SetMode(mode models.ManagerMode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.form.ManagerMode = mode
	switch mode {
	case models.ManagerModeSelectExisting:
		c.form.RecipientName = ""
		c.form.RecipientEmail = ""
	case models.ManagerModeEnterManually:
		c.form.ManagerID = ""
	}
	return nil
}

// UpdateForm applies the non-nil fields of patch. Fields owned by the
// inactive manager mode are ignored.
func (c *Coordinator) UpdateForm(patch models.UpdateFormRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	if patch.UserEmail != nil {
		c.form.UserEmail = *patch.UserEmail
	}
	if patch.Message != nil {
		c.form.Message = *patch.Message
	}
	mode := c.form.ManagerMode
	if mode != models.ManagerModeSelectExisting {
		if patch.RecipientName != nil {
			c.form.RecipientName = *patch.RecipientName
		}
		if patch.RecipientEmail != nil {
			c.form.RecipientEmail = *patch.RecipientEmail
		}
	}
	if mode != models.ManagerModeEnterManually && patch.ManagerID != nil {
		c.form.ManagerID = *patch.ManagerID
	}
	return nil
}

// Validate returns the field errors that would block Submit.
func (c *Coordinator) Validate() []models.FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return validateForm(c.form, c.managers)
}

// BuildPayload returns the payload Submit would send for the current form.
func (c *Coordinator) BuildPayload() models.MessagePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildPayloadLocked()
}

func (c *Coordinator) buildPayloadLocked() models.MessagePayload {
	p := models.MessagePayload{
		CompanyID: c.params.CompanyID,
		UserID:    c.params.UserID,
		UserEmail: c.form.UserEmail,
		ProjectID: c.params.ProjectID,
		Message:   c.form.Message,
	}
	switch c.form.ManagerMode {
	case models.ManagerModeSelectExisting:
		if m, ok := findManager(c.managers, c.form.ManagerID); ok {
			p.RecipientName = m.Name
			p.RecipientEmail = m.Email
		}
	case models.ManagerModeEnterManually:
		p.RecipientName = c.form.RecipientName
		p.RecipientEmail = c.form.RecipientEmail
	}
	return p
}

// Submit validates the form and sends it to the company manager. Invalid
// forms return a *ValidationError without any network call. On success the
// whitelist registration runs in the background; its outcome is reported
// but never changes the returned confirmation.
func (c *Coordinator) Submit(ctx context.Context) (*models.Confirmation, error) {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if errs := validateForm(c.form, c.managers); len(errs) > 0 {
		c.mu.Unlock()
		verr := &ValidationError{Errors: errs}
		c.report(ctx, events.KindValidationFailed, events.OpSubmit, verr)
		return nil, verr
	}
	payload := c.buildPayloadLocked()
	c.submitting = true
	// Released on primary failure or by the whitelist task. Must be under mu.
	c.bg.Add(1)
	c.mu.Unlock()

	_, err := c.svc.Requests.PostUserMessageToCompanyManager(ctx, c.params.UserID, c.params.CompanyID, payload)

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.submitted = true
	}
	c.mu.Unlock()

	if err != nil {
		c.bg.Done()
		c.logger.Error("request to company manager failed",
			"user_id", c.params.UserID,
			"company_id", c.params.CompanyID,
			"error", err,
		)
		c.report(ctx, events.KindSubmitFailed, events.OpSubmit, err)
		return nil, fmt.Errorf("send request to company manager: %w", err)
	}

	c.logger.Info("request sent to company manager",
		"user_id", c.params.UserID,
		"company_id", c.params.CompanyID,
		"project_id", c.params.ProjectID,
		"has_recipient", payload.RecipientEmail != "",
	)
	c.report(ctx, events.KindSubmitted, events.OpSubmit, nil)
	c.registerWhitelist(ctx)

	return confirmationFor(c.params.Identity), nil
}

// registerWhitelist records the CCLA whitelist request as a best-effort
// background task. It outlives ctx's cancellation and the flow's dismissal,
// and releases the bg slot Submit reserved.
func (c *Coordinator) registerWhitelist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer c.bg.Done()
		_, err := c.svc.Whitelist.PostCCLAWhitelistRequest(ctx, c.params.CompanyID, c.params.ProjectID,
			models.WhitelistPayload{UserID: c.params.UserID})
		if err != nil {
			c.logger.Warn("ccla whitelist request failed",
				"user_id", c.params.UserID,
				"project_id", c.params.ProjectID,
				"company_id", c.params.CompanyID,
				"error", err,
			)
			c.report(ctx, events.KindWhitelistFailed, events.OpWhitelist, err)
			return
		}
		c.logger.Info("ccla whitelist request recorded",
			"user_id", c.params.UserID,
			"project_id", c.params.ProjectID,
			"company_id", c.params.CompanyID,
		)
		c.report(ctx, events.KindWhitelistRecorded, events.OpWhitelist, nil)
	}()
}

func confirmationFor(id Identity) *models.Confirmation {
	msg := anonymousConfirmation
	if isAuthenticated(id) {
		msg = authenticatedConfirmation
	}
	return &models.Confirmation{Title: ConfirmationTitle, Message: msg}
}

// Close dismisses the flow. In-flight fetches are cancelled and any late
// result is dropped. A background whitelist registration keeps running.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancelFetch
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.logger.Info("flow dismissed")
	c.report(context.Background(), events.KindDismissed, events.OpDismiss, nil)
}

// Wait blocks until an in-flight Submit and its whitelist registration have
// finished.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// Managers returns a copy of the ordered manager list.
func (c *Coordinator) Managers() []models.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Manager, len(c.managers))
	copy(out, c.managers)
	return out
}

// Snapshot returns a copy of the flow state for rendering.
func (c *Coordinator) Snapshot() models.FlowSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.FlowSnapshot{
		FlowID:        c.id,
		ProjectID:     c.params.ProjectID,
		RepositoryID:  c.params.RepositoryID,
		UserID:        c.params.UserID,
		CompanyID:     c.params.CompanyID,
		Authenticated: isAuthenticated(c.params.Identity),
		UserEmails:    append([]string{}, c.userEmails...),
		Managers:      append([]models.Manager{}, c.managers...),
		Form:          c.form,
		Loading:       c.pending > 0 || c.submitting,
		Submitted:     c.submitted,
		Dismissed:     c.closed,
	}
	if c.project != nil {
		p := *c.project
		snap.Project = &p
	}
	if c.company != nil {
		co := *c.company
		snap.Company = &co
	}
	if c.signature != nil {
		s := *c.signature
		s.SignatureACL = append([]models.ACLEntry{}, c.signature.SignatureACL...)
		snap.Signature = &s
	}
	return snap
}
