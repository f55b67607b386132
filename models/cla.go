// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

// Signature type tags
const (
	SignatureTypeIndividual = "cla"
	SignatureTypeCorporate  = "ccla"
)

// ManagerMode is the two-state manager selection toggle. The zero value means
// the user has not chosen yet.
type ManagerMode string

const (
	ManagerModeUnset          ManagerMode = ""
	ManagerModeSelectExisting ManagerMode = "select-existing"
	ManagerModeEnterManually  ManagerMode = "enter-manually"
)

// Valid reports whether m is one of the two selectable modes.
func (m ManagerMode) Valid() bool {
	return m == ManagerModeSelectExisting || m == ManagerModeEnterManually
}

// Remote CLA backend types

type Project struct {
	ProjectID   string         `json:"project_id"`
	ProjectName string         `json:"project_name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type Company struct {
	CompanyID   string         `json:"company_id"`
	CompanyName string         `json:"company_name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type User struct {
	UserID     string   `json:"user_id"`
	Username   string   `json:"user_name"`
	UserEmails []string `json:"user_emails"`
	LFEmail    string   `json:"lf_email,omitempty"`
}

// ACLEntry is one manager on a signature's access-control list.
type ACLEntry struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	LFEmail  string `json:"lfEmail"`
}

type Signature struct {
	SignatureID   string     `json:"signatureID"`
	SignatureType string     `json:"signatureType"`
	SignatureACL  []ACLEntry `json:"signatureACL"`
}

type SignatureList struct {
	Signatures []Signature `json:"signatures"`
}

// Manager is a CLA manager candidate derived from an ACL entry.
type Manager struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// RequestForm holds user-entered values for a request-access submission.
type RequestForm struct {
	UserEmail      string      `json:"user_email"`
	Message        string      `json:"message"`
	RecipientName  string      `json:"recipient_name"`
	RecipientEmail string      `json:"recipient_email"`
	ManagerMode    ManagerMode `json:"manager_mode"`
	ManagerID      string      `json:"manager_id"`
}

// MessagePayload is sent to the company manager request endpoint.
type MessagePayload struct {
	CompanyID      string `json:"company_id"`
	UserID         string `json:"user_id"`
	UserEmail      string `json:"user_email"`
	ProjectID      string `json:"project_id"`
	Message        string `json:"message,omitempty"`
	RecipientName  string `json:"recipient_name,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
}

type WhitelistPayload struct {
	UserID string `json:"userId"`
}

// APIResponse is the loose acknowledgement body returned by write endpoints.
type APIResponse map[string]any
