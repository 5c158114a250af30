// Package dto provides Data Transfer Objects for API responses.
package dto

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// ErrorResponse wraps ErrorBody under an "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
