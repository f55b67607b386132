// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines remote CLA types, flow request/response types and
shared domain values.

# Remote CLA Types

Decoded from the CLA backend:

  - Project, Company: read-only reference data
  - User: user_emails plus an optional lf_email
  - Signature: signatureType and signatureACL (camelCase on the wire)
  - ACLEntry: userID, username, lfEmail

# Flow Types

Request bodies for the flow API:

  - CreateFlowRequest: project_id, repository_id, user_id, company_id, authenticated
  - SetModeRequest: mode
  - UpdateFormRequest: optional form fields (absent fields are left alone)

Responses:

  - CreateFlowResponse: flow_id, flow_key
  - FlowSnapshot: everything the console renders for a flow
  - Confirmation: title, message
  - ValidationErrorResponse: field-keyed messages
  - EventList: recorded coordinator events
  - ErrorResponse: error, message

# Constants

Signature types:

	SignatureTypeIndividual = "cla"
	SignatureTypeCorporate  = "ccla"

Manager selection modes:

	ManagerModeSelectExisting = "select-existing"
	ManagerModeEnterManually  = "enter-manually"
*/
package models
