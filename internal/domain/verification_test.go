package domain_test

import (
	"testing"

	"github.com/maryoneshop/orderflow/internal/domain"
)

func TestVerificationStatusEffect(t *testing.T) {
	tests := []struct {
		outcome    domain.VerificationOutcome
		wantStatus domain.VerificationStatus
		wantApply  bool
	}{
		{domain.VerificationOutcomeConfirmed, domain.VerificationStatusVerified, true},
		{domain.VerificationOutcomeNoAnswer, domain.VerificationStatusUnreachable, true},
		{domain.VerificationOutcomeWrongNumber, domain.VerificationStatusUnreachable, true},
		{domain.VerificationOutcomeBusy, "", false},
		{domain.VerificationOutcomeFollowUp, "", false},
	}

	for _, tc := range tests {
		status, apply := tc.outcome.StatusEffect()
		if apply != tc.wantApply {
			t.Errorf("outcome %s: expected apply=%v, got %v", tc.outcome, tc.wantApply, apply)
		}
		if status != tc.wantStatus {
			t.Errorf("outcome %s: expected status %q, got %q", tc.outcome, tc.wantStatus, status)
		}
	}
}

func TestVerificationEnumsValid(t *testing.T) {
	if !domain.VerificationActionCall.Valid() {
		t.Fatal("call must be a valid action")
	}
	if domain.VerificationAction("fax").Valid() {
		t.Fatal("fax must not be a valid action")
	}
	if !domain.VerificationOutcomeFollowUp.Valid() {
		t.Fatal("follow_up must be a valid outcome")
	}
	if domain.VerificationOutcome("ghosted").Valid() {
		t.Fatal("unknown outcome must be rejected")
	}
}
