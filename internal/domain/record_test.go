package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDeriveTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		want     int
	}{
		{name: "empty set still spans one page", total: 0, pageSize: 100, want: 1},
		{name: "exact multiple", total: 200, pageSize: 100, want: 2},
		{name: "partial last page", total: 201, pageSize: 100, want: 3},
		{name: "single record", total: 1, pageSize: 100, want: 1},
		{name: "zero page size", total: 50, pageSize: 0, want: 1},
		{name: "negative page size", total: 50, pageSize: -1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTotalPages(tt.total, tt.pageSize); got != tt.want {
				t.Errorf("DeriveTotalPages(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
			}
		})
	}
}

func TestAggregationResultIsComplete(t *testing.T) {
	complete := &AggregationResult{Outcome: AggregationComplete}
	if !complete.IsComplete() {
		t.Error("complete run reported as incomplete")
	}

	aborted := &AggregationResult{
		Outcome: AggregationSessionExpired,
		Records: []ScanRecord{{TrackingNumber: "TRK001"}},
		Err:     errors.New("session expired"),
	}
	if aborted.IsComplete() {
		t.Error("aborted run with partial records reported as complete")
	}
}

func TestSessionUpstreamExpired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := Session{Token: "t", Identity: "EWR", IssuedAt: issued}

	if session.UpstreamExpired(issued.Add(30 * time.Minute)) {
		t.Error("session expired inside the TTL")
	}
	if !session.UpstreamExpired(issued.Add(UpstreamTokenTTL)) {
		t.Error("session not expired exactly at the TTL boundary")
	}
	if !session.UpstreamExpired(issued.Add(2 * time.Hour)) {
		t.Error("session not expired past the TTL")
	}

	zero := Session{Token: "t", Identity: "EWR"}
	if !zero.UpstreamExpired(issued) {
		t.Error("session with zero IssuedAt must count as expired")
	}
}

func TestSessionIsAuthenticated(t *testing.T) {
	if (Session{}).IsAuthenticated() {
		t.Error("empty session reported as authenticated")
	}
	if (Session{Token: "t"}).IsAuthenticated() {
		t.Error("session without identity reported as authenticated")
	}
	if !(Session{Token: "t", Identity: "EWR"}).IsAuthenticated() {
		t.Error("session with token and identity reported as unauthenticated")
	}
}

func TestTransientErrorMessages(t *testing.T) {
	unreachable := NewUnreachableError(errors.New("connection refused"))
	if !unreachable.Unreachable {
		t.Error("NewUnreachableError must set Unreachable")
	}

	withStatus := &TransientError{StatusCode: 500, Message: "internal error"}
	if got := withStatus.Error(); got != "upstream request failed (status 500): internal error" {
		t.Errorf("unexpected status error message: %q", got)
	}

	if _, ok := AsTransient(errors.New("plain")); ok {
		t.Error("AsTransient matched a plain error")
	}
	if te, ok := AsTransient(withStatus); !ok || te.StatusCode != 500 {
		t.Error("AsTransient failed to extract a TransientError")
	}
}
