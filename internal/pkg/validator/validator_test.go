package validator

import (
	"errors"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@x.com", "user.name+1@domain.co", "a@b.c", "x@sub.domain.org"}
	invalid := []string{"test@", "@example.com", "test@com", "test@domain", "a b@x.com", "a@@x.com", " ", ""}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	valid := []string{"123", "0", "9876543210"}
	invalid := []string{"abc", "123a", "", "-123", "12 34"}
	for _, s := range valid {
		if !IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = true, want false", s)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsOneOf(t *testing.T) {
	if !IsOneOf("HR", "HR", "Manager", "Sales") {
		t.Error("IsOneOf(HR) = false, want true")
	}
	if IsOneOf("hr", "HR", "Manager", "Sales") {
		t.Error("IsOneOf(hr) = true, want false")
	}
	if IsOneOf("", "HR", "Manager", "Sales") {
		t.Error("IsOneOf(\"\") = true, want false")
	}
	if IsOneOf("HR") {
		t.Error("IsOneOf with no allowed values = true, want false")
	}
}

func TestFromMap(t *testing.T) {
	errs := FromMap(map[string]string{"mobile": "m", "email": "e"})
	if len(errs) != 2 {
		t.Fatalf("len(FromMap) = %d, want 2", len(errs))
	}
	if errs[0].Field != "email" || errs[1].Field != "mobile" {
		t.Errorf("FromMap order = %v, want email then mobile", errs)
	}
	if FromMap(nil) != nil {
		t.Error("FromMap(nil) should be nil")
	}
	if got := errs.ToMap()["email"]; got != "e" {
		t.Errorf("ToMap()[email] = %q, want %q", got, "e")
	}
}

func TestStruct(t *testing.T) {
	type sample struct {
		Kind string `validate:"required,oneof=a b"`
		Size int    `validate:"min=1"`
	}

	if err := Struct(sample{Kind: "a", Size: 1}); err != nil {
		t.Fatalf("Struct(valid) = %v, want nil", err)
	}

	err := Struct(sample{Kind: "c", Size: 0})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct(invalid) error type = %T, want ValidationErrors", err)
	}
	m := verrs.ToMap()
	if m["sample.Kind"] != "Kind must be one of a b" {
		t.Errorf("Kind message = %q", m["sample.Kind"])
	}
	if m["sample.Size"] != "Size must be at least 1" {
		t.Errorf("Size message = %q", m["sample.Size"])
	}
}

func TestStruct_EnvTagNames(t *testing.T) {
	type settings struct {
		Secret string `env:"JWT_SECRET_KEY" validate:"required"`
	}

	err := Struct(settings{})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct error type = %T, want ValidationErrors", err)
	}
	if got := verrs.ToMap()["JWT_SECRET_KEY"]; got != "JWT_SECRET_KEY is required" {
		t.Errorf("Secret message = %q", got)
	}
}
