package validate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/garnizeh/clientportal/internal/validate"
)

func TestNew_LoadsAllSchemas(t *testing.T) {
	v, err := validate.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []string{
		validate.BusinessProfile, validate.CandidateAction, validate.Decision, validate.Login,
		validate.ResetConfirm, validate.ResetRequest, validate.Scorecard, validate.SupportTicket,
	}
	got := v.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	v, err := validate.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{"login ok", validate.Login, `{"email":"a@b.co","password":"x","remember_me":true}`, false},
		{"login missing password", validate.Login, `{"email":"a@b.co"}`, true},
		{"action ok", validate.CandidateAction, `{"actionType":"reserve","reason":"later"}`, false},
		{"action unknown", validate.CandidateAction, `{"actionType":"promote"}`, true},
		{"scorecard ok", validate.Scorecard, `{"technical_skills":4,"overall_rating":5,"final_decision":"approve"}`, false},
		{"scorecard out of range", validate.Scorecard, `{"overall_rating":9}`, true},
		{"scorecard wrong type", validate.Scorecard, `{"teamwork":"high"}`, true},
		{"ticket ok", validate.SupportTicket, `{"subject":"Help","description":"x","priority":"high"}`, false},
		{"ticket empty subject", validate.SupportTicket, `{"subject":"","description":"x"}`, true},
		{"reset confirm short password", validate.ResetConfirm, `{"token":"t","password":"short"}`, true},
		{"profile ok", validate.BusinessProfile, `{"business_size":"11-50"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.schema, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *validate.Error
				if !errors.As(err, &verr) {
					t.Fatalf("expected *validate.Error, got %T", err)
				}
				if len(verr.Problems) == 0 {
					t.Fatal("expected at least one problem")
				}
			}
		})
	}
}

func TestValidate_BadInput(t *testing.T) {
	v, _ := validate.New()
	if err := v.Validate(context.Background(), "nope", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown schema")
	}
	err := v.Validate(context.Background(), validate.Login, []byte(`{not json`))
	var verr *validate.Error
	if err == nil || errors.As(err, &verr) {
		t.Fatalf("expected plain error for malformed json, got %v", err)
	}
}
