package form

import (
	"errors"
	"testing"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

type doctorInput struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Status          string `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED PENDING"`
	ExperienceYears int    `json:"experienceYears" validate:"gte=0,lte=70"`
	Website         string `json:"website" validate:"omitempty,url"`
	Start           string `json:"startTime" validate:"omitempty,clock"`
}

func TestValidate_Valid(t *testing.T) {
	in := doctorInput{
		Name: "Dr. John Doe", Email: "john@example.com", Phone: "+1 555 010 0101",
		Status: "ACTIVE", ExperienceYears: 12, Website: "https://clinic.example.com", Start: "09:30",
	}
	if err := Validate(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FieldScopedErrors(t *testing.T) {
	in := doctorInput{Name: "J", Email: "nope", Status: "RETIRED", ExperienceYears: -1, Start: "25:00", Phone: "x"}
	err := Validate(in)

	var ferrs Errors
	if !errors.As(err, &ferrs) {
		t.Fatalf("expected Errors, got %T", err)
	}
	by := ferrs.ByField()
	want := map[string]string{
		"name":            "must be at least 2 characters",
		"email":           "must be a valid email address",
		"status":          "must be one of: ACTIVE, INACTIVE, SUSPENDED, PENDING",
		"experienceYears": "must be greater than or equal to 0",
		"startTime":       "must be a time of day (HH:MM)",
		"phone":           "must be a valid phone number",
	}
	for field, msg := range want {
		if by[field] != msg {
			t.Errorf("%s: expected %q, got %q", field, msg, by[field])
		}
	}
	if apiclient.KindOf(err) != apiclient.KindValidation {
		t.Errorf("expected validation kind, got %s", apiclient.KindOf(err))
	}
}

func TestValidate_Required(t *testing.T) {
	err := Validate(doctorInput{})
	by := err.(Errors).ByField()
	for _, f := range []string{"name", "email", "status"} {
		if by[f] != "is required" {
			t.Errorf("%s: expected required, got %q", f, by[f])
		}
	}
	if _, ok := by["website"]; ok {
		t.Error("optional fields must not fail when empty")
	}
}

func TestView_WithError(t *testing.T) {
	v := NewEdit("7", doctorInput{Name: "Dr. X"})
	got := v.WithError(&apiclient.APIError{Status: 400, Message: "Email already registered"})
	if got.Message != "Email already registered" || got.Values.Name != "Dr. X" {
		t.Errorf("expected message with values kept, got %+v", got)
	}
	got = v.WithError(Field("email", "unique", "is already taken"))
	if got.Errors["email"] != "is already taken" {
		t.Errorf("expected field error, got %+v", got.Errors)
	}
	if NewCreate(doctorInput{}).Mode != ModeCreate || v.Mode != ModeEdit {
		t.Error("unexpected modes")
	}
}
