package models

import "time"

// Request types

type CreateFlowRequest struct {
	ProjectID     string `json:"project_id"`
	RepositoryID  string `json:"repository_id"`
	UserID        string `json:"user_id"`
	CompanyID     string `json:"company_id"`
	Authenticated bool   `json:"authenticated"`
}

type SetModeRequest struct {
	Mode ManagerMode `json:"mode"`
}

// UpdateFormRequest only changes fields that are present in the body.
type UpdateFormRequest struct {
	UserEmail      *string `json:"user_email,omitempty"`
	Message        *string `json:"message,omitempty"`
	RecipientName  *string `json:"recipient_name,omitempty"`
	RecipientEmail *string `json:"recipient_email,omitempty"`
	ManagerID      *string `json:"manager_id,omitempty"`
}

// Response types

type CreateFlowResponse struct {
	FlowID  string `json:"flow_id"`
	FlowKey string `json:"flow_key"`
}

// FlowSnapshot is the renderable state of a request-access flow.
type FlowSnapshot struct {
	FlowID        string      `json:"flow_id"`
	ProjectID     string      `json:"project_id"`
	RepositoryID  string      `json:"repository_id"`
	UserID        string      `json:"user_id"`
	CompanyID     string      `json:"company_id"`
	Authenticated bool        `json:"authenticated"`
	Project       *Project    `json:"project,omitempty"`
	Company       *Company    `json:"company,omitempty"`
	UserEmails    []string    `json:"user_emails"`
	Signature     *Signature  `json:"ccla_signature,omitempty"`
	Managers      []Manager   `json:"managers"`
	Form          RequestForm `json:"form"`
	Loading       bool        `json:"loading"`
	Submitted     bool        `json:"submitted"`
	Dismissed     bool        `json:"dismissed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors"`
}

// Confirmation is the message shown after a successful submission.
type Confirmation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Event struct {
	ID        string    `json:"id"`
	FlowID    string    `json:"flow_id"`
	Kind      string    `json:"kind"`
	Operation string    `json:"operation"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EventList struct {
	Events []Event `json:"events"`
}
