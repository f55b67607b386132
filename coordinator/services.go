// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"

	"github.com/danielhkuo/cla-access/claapi"
	"github.com/danielhkuo/cla-access/models"
)

// Identity selects how the requesting user is looked up. It is either
// Authenticated (Gerrit users, carrying a bearer token) or Anonymous
// (GitHub users).
type Identity interface {
	isIdentity()
}

type Authenticated struct {
	Token string
}

type Anonymous struct{}

func (Authenticated) isIdentity() {}
func (Anonymous) isIdentity()     {}

// IdentityFor builds the identity variant from the console's authenticated
// flag and the caller's token.
func IdentityFor(authenticated bool, token string) Identity {
	if authenticated {
		return Authenticated{Token: token}
	}
	return Anonymous{}
}

func isAuthenticated(id Identity) bool {
	_, ok := id.(Authenticated)
	return ok
}

type IdentityService interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserWithAuthToken(ctx context.Context, userID, token string) (*models.User, error)
}

type ProjectService interface {
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
}

type CompanyService interface {
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
}

type SignatureService interface {
	GetCompanyProjectSignatures(ctx context.Context, companyID, projectID string) (*models.SignatureList, error)
}

type RequestService interface {
	PostUserMessageToCompanyManager(ctx context.Context, userID, companyID string, payload models.MessagePayload) (models.APIResponse, error)
}

type WhitelistService interface {
	PostCCLAWhitelistRequest(ctx context.Context, companyID, projectID string, payload models.WhitelistPayload) (models.APIResponse, error)
}

// Services bundles the remote collaborators a coordinator talks to.
type Services struct {
	Identity   IdentityService
	Projects   ProjectService
	Companies  CompanyService
	Signatures SignatureService
	Requests   RequestService
	Whitelist  WhitelistService
}

// ClientServices wires every collaborator to the same CLA API client.
func ClientServices(c *claapi.Client) Services {
	return Services{
		Identity:   c,
		Projects:   c,
		Companies:  c,
		Signatures: c,
		Requests:   c,
		Whitelist:  c,
	}
}
