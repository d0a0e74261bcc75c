package derive

import "testing"

func TestBMI_MetresAndCentimetresAgree(t *testing.T) {
	cm := BMI("70", "175")
	m := BMI("70", "1.75")
	if cm != "22.86" {
		t.Errorf("BMI(70, 175) = %q, want 22.86", cm)
	}
	if m != "22.86" {
		t.Errorf("BMI(70, 1.75) = %q, want 22.86", m)
	}
}

func TestBMI_Cleared(t *testing.T) {
	tests := []struct{ weight, height string }{
		{"", "175"},
		{"70", ""},
		{"", ""},
		{"abc", "175"},
		{"70", "0"},
		{"-70", "175"},
		{"70", "-1.75"},
	}
	for _, tt := range tests {
		if got := BMI(tt.weight, tt.height); got != "" {
			t.Errorf("BMI(%q, %q) = %q, want empty", tt.weight, tt.height, got)
		}
	}
}

func TestBMI_ThresholdBoundary(t *testing.T) {
	// 3 and above is read as centimetres.
	v, ok := ComputeBMI(1, 3)
	if !ok {
		t.Fatal("expected ok")
	}
	if v < 1111 || v > 1112 {
		t.Errorf("expected height 3 treated as 0.03 m, got %v", v)
	}
	v, ok = ComputeBMI(90, 2.99)
	if !ok || v < 10 || v > 10.1 {
		t.Errorf("expected height 2.99 treated as metres, got %v", v)
	}
}

func TestBMICategory(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{17.2, "Underweight"},
		{18.5, "Normal"},
		{22.86, "Normal"},
		{24.9, "Overweight"},
		{29.89, "Overweight"},
		{29.9, "Obese"},
		{35, "Obese"},
	}
	for _, tt := range tests {
		if got := BMICategory(tt.bmi); got != tt.want {
			t.Errorf("BMICategory(%v) = %s, want %s", tt.bmi, got, tt.want)
		}
	}
}
