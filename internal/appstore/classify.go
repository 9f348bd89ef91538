package appstore

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Outcome is the result of a device registration attempt.
type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeFailed            Outcome = "failed"
)

const duplicateCode = "ENTITY_ERROR.ATTRIBUTE.INVALID.DUPLICATE"

var duplicatePhrases = []string{"already exists", "has already been taken"}

type errorDocument struct {
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// ClassifyRegistration maps a registration response to an outcome.
// A conflict status or any duplicate-shaped error entry counts as already registered.
func ClassifyRegistration(status int, body []byte) (Outcome, string) {
	if status >= 200 && status < 300 {
		return OutcomeRegistered, ""
	}

	var doc errorDocument
	_ = json.Unmarshal(body, &doc)

	details := make([]string, 0, len(doc.Errors))
	for _, e := range doc.Errors {
		if e.Detail != "" {
			details = append(details, e.Detail)
		} else if e.Title != "" {
			details = append(details, e.Title)
		}
	}
	detail := strings.Join(details, "; ")
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	if status == http.StatusConflict {
		return OutcomeAlreadyRegistered, detail
	}

	for _, e := range doc.Errors {
		if e.Code == duplicateCode {
			return OutcomeAlreadyRegistered, detail
		}
		lower := strings.ToLower(e.Detail)
		for _, phrase := range duplicatePhrases {
			if strings.Contains(lower, phrase) {
				return OutcomeAlreadyRegistered, detail
			}
		}
	}

	return OutcomeFailed, detail
}
