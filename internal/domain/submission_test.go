package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewSubmission(t *testing.T) {
	t.Parallel() // Enable parallel execution
	ownerID, itemID, sittingID := uuid.New(), uuid.New(), uuid.New()

	sub, err := NewSubmission(ownerID, itemID, sittingID, "a channel")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if sub.Status != SubmissionStatusPending {
		t.Errorf("Expected pending status, got %s", sub.Status)
	}
	if sub.Verdict != nil {
		t.Error("Expected no verdict on a new submission")
	}

	if _, err := NewSubmission(ownerID, uuid.Nil, sittingID, "x"); err != ErrSubmissionItemIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrSubmissionItemIDEmpty, err)
	}
	if _, err := NewSubmission(ownerID, itemID, uuid.Nil, "x"); err != ErrSubmissionSittingIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrSubmissionSittingIDEmpty, err)
	}
	if _, err := NewSubmission(ownerID, itemID, sittingID, ""); err != ErrSubmissionAnswerEmpty {
		t.Errorf("Expected error %v, got %v", ErrSubmissionAnswerEmpty, err)
	}
}

func TestSubmissionValidateVerdictConsistency(t *testing.T) {
	t.Parallel() // Enable parallel execution

	sub, err := NewSubmission(uuid.New(), uuid.New(), uuid.New(), "answer")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sub.Status = SubmissionStatusEvaluated
	if err := sub.Validate(); err != ErrEvaluatedWithoutVerdict {
		t.Errorf("Expected error %v, got %v", ErrEvaluatedWithoutVerdict, err)
	}

	v := VerdictCorrect
	sub.Verdict = &v
	if err := sub.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	sub.Status = SubmissionStatus("lost")
	if err := sub.Validate(); err != ErrInvalidStatus {
		t.Errorf("Expected error %v, got %v", ErrInvalidStatus, err)
	}
}

func TestSubmissionStatusTerminal(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tests := []struct {
		status   SubmissionStatus
		terminal bool
	}{
		{SubmissionStatusPending, false},
		{SubmissionStatusEvaluating, false},
		{SubmissionStatusEvaluated, true},
		{SubmissionStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s: expected terminal=%v, got %v", tt.status, tt.terminal, got)
		}
	}
}

func TestAnswerProgress(t *testing.T) {
	t.Parallel() // Enable parallel execution

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sub := func(item uuid.UUID, status SubmissionStatus) *Submission {
		return &Submission{ItemID: item, Status: status}
	}

	tests := []struct {
		name        string
		subs        []*Submission
		answered    []uuid.UUID
		allTerminal bool
	}{
		{name: "no submissions", allTerminal: true},
		{
			name:        "failed answers its item",
			subs:        []*Submission{sub(a, SubmissionStatusEvaluated), sub(b, SubmissionStatusFailed)},
			answered:    []uuid.UUID{a, b},
			allTerminal: true,
		},
		{
			name:        "pending keeps it open",
			subs:        []*Submission{sub(a, SubmissionStatusFailed), sub(c, SubmissionStatusPending)},
			answered:    []uuid.UUID{a, c},
			allTerminal: false,
		},
		{
			name:        "evaluating keeps it open",
			subs:        []*Submission{sub(b, SubmissionStatusEvaluating)},
			answered:    []uuid.UUID{b},
			allTerminal: false,
		},
	}

	for _, tt := range tests {
		answered, allTerminal := AnswerProgress(tt.subs)
		if allTerminal != tt.allTerminal {
			t.Errorf("%s: expected allTerminal=%v, got %v", tt.name, tt.allTerminal, allTerminal)
		}
		if len(answered) != len(tt.answered) {
			t.Errorf("%s: expected %d answered items, got %d", tt.name, len(tt.answered), len(answered))
		}
		for _, id := range tt.answered {
			if !answered[id] {
				t.Errorf("%s: expected item %s to be answered", tt.name, id)
			}
		}
	}
}
