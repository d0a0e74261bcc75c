package derive

import "testing"

func TestContactValidators(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) Result[string]
		input string
		valid bool
	}{
		{"phone ok", ValidatePhone, "9876543210", true},
		{"phone short", ValidatePhone, "98765", false},
		{"phone letters", ValidatePhone, "98765abcde", false},
		{"phone empty", ValidatePhone, "", true},
		{"email ok", ValidateEmail, "asha@example.in", true},
		{"email no tld", ValidateEmail, "asha@example", false},
		{"email space", ValidateEmail, "as ha@example.in", false},
		{"aadhaar ok", ValidateAadhaar, "123456789012", true},
		{"aadhaar short", ValidateAadhaar, "12345678901", false},
		{"pin ok", ValidatePin, "560001", true},
		{"pin long", ValidatePin, "5600011", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.fn(tt.input)
			if r.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (%q)", r.Valid, tt.valid, r.Error)
			}
			if !r.Valid && r.Error == "" {
				t.Error("invalid result without an error message")
			}
		})
	}
}

func TestValidatePhone_Message(t *testing.T) {
	if r := ValidatePhone("123"); r.Error != "Phone number must be 10 digits" {
		t.Errorf("unexpected message %q", r.Error)
	}
}

func TestSanitizeDigits(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"5600-01", PinLength, "560001"},
		{"56000123", PinLength, "560001"},
		{"1234 5678 9012 34", AadhaarLength, "123456789012"},
		{"+91 98765", 0, "9198765"},
		{"abc", 4, ""},
	}
	for _, tt := range tests {
		if got := SanitizeDigits(tt.in, tt.limit); got != tt.want {
			t.Errorf("SanitizeDigits(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
