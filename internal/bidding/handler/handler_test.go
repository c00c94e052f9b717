package handler

import (
	"net/http"
	"testing"

	"procurement_backend/internal/bidding/service"
	"procurement_backend/platform/apperr"
)

func TestResultErrorStatus(t *testing.T) {
	cases := []struct {
		reason service.Reason
		status int
	}{
		{service.ReasonNeedsQuantityDecision, http.StatusConflict},
		{service.ReasonQuotationClosed, http.StatusGone},
		{service.ReasonSupplierLockedOut, http.StatusForbidden},
		{service.ReasonSupplierStopped, http.StatusForbidden},
		{service.ReasonDeliveryUnconfirmed, http.StatusConflict},
		{service.ReasonIncompleteOffer, http.StatusBadRequest},
		{service.ReasonInsufficientUndercut, http.StatusUnprocessableEntity},
		{service.ReasonDuplicatePrice, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			outcome := service.OutcomeRejected
			if tc.reason == service.ReasonNeedsQuantityDecision {
				outcome = service.OutcomeNeedsDecision
			}
			err := ResultError(service.SubmitResult{Outcome: outcome, Reason: tc.reason})
			appErr, ok := err.(*apperr.Error)
			if !ok {
				t.Fatalf("expected *apperr.Error, got %T", err)
			}
			if appErr.HTTPStatus() != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, appErr.HTTPStatus())
			}
			if appErr.Reason != string(tc.reason) {
				t.Fatalf("expected reason %s, got %s", tc.reason, appErr.Reason)
			}
		})
	}
}

func TestResultErrorAccepted(t *testing.T) {
	if err := ResultError(service.SubmitResult{Outcome: service.OutcomeAccepted}); err != nil {
		t.Fatalf("expected nil for accepted offers, got %v", err)
	}
}
