package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type fakeProvider struct {
	name   string
	result *LLMResult
	err    error
}

func (p *fakeProvider) Name() string  { return p.name }
func (p *fakeProvider) Model() string { return p.name + "-model" }

func (p *fakeProvider) GenerateJSON(ctx context.Context, system, user string) (*LLMResult, error) {
	return p.result, p.err
}

func (p *fakeProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

type captureCallLogRepo struct {
	entries []*types.AICallLog
}

func (r *captureCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	r.entries = append(r.entries, logs...)
	return logs, nil
}

func TestFallbackGeneratorRecordsTokenUsage(t *testing.T) {
	callLog := &captureCallLogRepo{}
	provider := &fakeProvider{
		name:   "primary",
		result: &LLMResult{Text: `{"ok":true}`, InputTokens: 120, OutputTokens: 345},
	}
	gen, err := NewFallbackGenerator(logger.NewNop(), []LLMProvider{provider}, callLog)
	if err != nil {
		t.Fatalf("NewFallbackGenerator: %v", err)
	}

	userID := uuid.New()
	text, err := gen.GenerateJSON(context.Background(), &userID, "course_outline", "sys", "usr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("text = %q", text)
	}

	if len(callLog.entries) != 1 {
		t.Fatalf("call log entries = %d, want 1", len(callLog.entries))
	}
	entry := callLog.entries[0]
	if entry.InputTokens != 120 || entry.OutputTokens != 345 {
		t.Fatalf("tokens = (%d, %d), want (120, 345)", entry.InputTokens, entry.OutputTokens)
	}
	if entry.Provider != "primary" || entry.Model != "primary-model" || entry.Purpose != "course_outline" {
		t.Fatalf("entry metadata = %+v", entry)
	}
	if entry.Error != "" {
		t.Fatalf("entry error = %q, want empty", entry.Error)
	}
}

func TestFallbackGeneratorFailover(t *testing.T) {
	callLog := &captureCallLogRepo{}
	providers := []LLMProvider{
		&fakeProvider{name: "broken", err: errors.New("upstream 500")},
		&fakeProvider{name: "backup", result: &LLMResult{Text: `{"ok":true}`, InputTokens: 7, OutputTokens: 9}},
	}
	gen, err := NewFallbackGenerator(logger.NewNop(), providers, callLog)
	if err != nil {
		t.Fatalf("NewFallbackGenerator: %v", err)
	}

	text, err := gen.GenerateJSON(context.Background(), nil, "course_modules", "sys", "usr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("text = %q", text)
	}
	if len(callLog.entries) != 2 {
		t.Fatalf("call log entries = %d, want 2", len(callLog.entries))
	}
	if callLog.entries[0].Error == "" {
		t.Fatalf("first entry should record the failure")
	}
	if callLog.entries[1].InputTokens != 7 || callLog.entries[1].OutputTokens != 9 {
		t.Fatalf("backup tokens = (%d, %d), want (7, 9)",
			callLog.entries[1].InputTokens, callLog.entries[1].OutputTokens)
	}
}
