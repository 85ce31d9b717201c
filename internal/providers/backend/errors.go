package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"moviesvault/catalog/internal/domain"
)

// errorBody covers the error shapes the backend emits: {"error": "..."},
// {"error": {"code", "message"}}, {"message": "..."}, DRF's {"detail": "..."}
// and {"non_field_errors": [...]}.
type errorBody struct {
	Error          json.RawMessage `json:"error"`
	Message        json.RawMessage `json:"message"`
	Detail         json.RawMessage `json:"detail"`
	NonFieldErrors []string        `json:"non_field_errors"`
}

func (b errorBody) message() string {
	if msg := rawMessage(b.Error); msg != "" {
		return msg
	}
	if msg := rawMessage(b.Message); msg != "" {
		return msg
	}
	if msg := rawMessage(b.Detail); msg != "" {
		return msg
	}
	if len(b.NonFieldErrors) > 0 {
		return strings.TrimSpace(b.NonFieldErrors[0])
	}
	return ""
}

// rawMessage reads a message out of a string, or out of an object carrying
// "message" / "detail", or the first string of an array.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		if msg := strings.TrimSpace(nested.Message); msg != "" {
			return msg
		}
		return strings.TrimSpace(nested.Detail)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	return ""
}

// ErrorMessage extracts the human-readable message from a non-success
// response body, falling back to "<operation> failed (<status>)".
func ErrorMessage(operationName string, status int, body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := parsed.message(); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%s failed (%d)", operationName, status)
}

func statusError(op operation, status int, body []byte) *domain.UpstreamError {
	return &domain.UpstreamError{
		Kind:    domain.KindUpstreamUnavailable,
		Op:      op.name,
		Status:  status,
		Message: ErrorMessage(op.name, status, body),
	}
}

func networkError(op operation, err error) *domain.UpstreamError {
	return &domain.UpstreamError{
		Kind:    domain.KindNetworkUnavailable,
		Op:      op.name,
		Message: domain.NetworkUnavailableMessage,
		Err:     err,
	}
}

func malformedError(op operation, err error) *domain.UpstreamError {
	return &domain.UpstreamError{
		Kind:    domain.KindMalformedResponse,
		Op:      op.name,
		Message: "unexpected response body: " + err.Error(),
		Err:     err,
	}
}
