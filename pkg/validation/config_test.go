package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("RunConfig")
	cv.Required("Tag", "")
	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("RunConfig")
	cv2.Required("Tag", "nightly")
	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(*ConfigValidator)
		wantErr bool
	}{
		{"int in range", func(cv *ConfigValidator) { cv.RangeInt("Workers", 4, 1, 64) }, false},
		{"int below", func(cv *ConfigValidator) { cv.RangeInt("Workers", 0, 1, 64) }, true},
		{"int above", func(cv *ConfigValidator) { cv.RangeInt("Workers", 65, 1, 64) }, true},
		{"float lower bound", func(cv *ConfigValidator) { cv.RangeFloat("CoverageTarget", 0, 0, 1) }, false},
		{"float upper bound", func(cv *ConfigValidator) { cv.RangeFloat("CoverageTarget", 1, 0, 1) }, false},
		{"float above", func(cv *ConfigValidator) { cv.RangeFloat("CoverageTarget", 1.5, 0, 1) }, true},
		{"positive", func(cv *ConfigValidator) { cv.Positive("PlateauThreshold", 0) }, true},
		{"non-negative zero", func(cv *ConfigValidator) { cv.NonNegative("MaxAttempts", 0) }, false},
		{"non-negative negative", func(cv *ConfigValidator) { cv.NonNegative("MaxAttempts", -1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("RunConfig")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", cv.HasErrors(), tt.wantErr, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"directed", "undirected"}

	cv := NewConfigValidator("RunConfig")
	cv.OneOf("Direction", "sideways", allowed)
	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("RunConfig")
	cv2.OneOf("Direction", "undirected", allowed)
	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("unknown phase")

	cv := NewConfigValidator("RunConfig")
	cv.Custom("Phase", func() error { return sentinel })
	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() should wrap the custom error, got %v", cv.Validate())
	}

	cv2 := NewConfigValidator("RunConfig")
	cv2.When(false, func(v *ConfigValidator) { v.Required("DatabaseURL", "") })
	if cv2.HasErrors() {
		t.Error("When(false) should skip validations")
	}
	cv2.When(true, func(v *ConfigValidator) { v.Required("DatabaseURL", "") })
	if !cv2.HasErrors() {
		t.Error("When(true) should apply validations")
	}
}

func TestConfigValidator_MultipleErrors(t *testing.T) {
	sentinel := errors.New("bad seed")
	cv := NewConfigValidator("RunConfig").
		Required("Tag", "").
		RangeFloat("CoverageTarget", 2, 0, 1).
		Custom("Seed", func() error { return sentinel })

	if len(cv.Errors()) != 3 {
		t.Fatalf("Expected 3 errors, got %d", len(cv.Errors()))
	}

	err := cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("Validate() = %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("joined error should keep every cause in the chain")
	}
}

func TestDefaults(t *testing.T) {
	if DefaultOr("", "fallback") != "fallback" {
		t.Error("DefaultOr should use default for zero value")
	}
	if DefaultOr("set", "fallback") != "set" {
		t.Error("DefaultOr should keep non-zero value")
	}
	if DefaultOrInt(-3, 50) != 50 || DefaultOrInt(7, 50) != 7 {
		t.Error("DefaultOrInt mismatch")
	}
	if ClampInt(100, 1, 64) != 64 || ClampInt(0, 1, 64) != 1 || ClampInt(8, 1, 64) != 8 {
		t.Error("ClampInt mismatch")
	}
}

func TestStruct(t *testing.T) {
	type sample struct {
		Name    string  `validate:"required"`
		Workers int     `validate:"gte=1,lte=8"`
		Ratio   float64 `validate:"gte=0,lte=1"`
		Mode    string  `validate:"oneof=a b"`
	}

	tests := []struct {
		name    string
		value   sample
		wantMsg string
	}{
		{"valid", sample{Name: "x", Workers: 2, Ratio: 0.5, Mode: "a"}, ""},
		{"missing name", sample{Workers: 2, Mode: "a"}, "field is required"},
		{"too many workers", sample{Name: "x", Workers: 9, Mode: "a"}, "must not exceed 8"},
		{"bad mode", sample{Name: "x", Workers: 1, Mode: "c"}, "must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.value)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Struct() = %v, want message containing %q", err, tt.wantMsg)
			}
		})
	}

	if Struct(nil) == nil {
		t.Error("Struct(nil) should fail")
	}
}
