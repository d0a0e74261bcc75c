package derive

import (
	"math"
	"strconv"
	"strings"
)

// Heights below this are read as metres, anything else as centimetres.
const metreThreshold = 3

// ComputeBMI returns weight / height_m^2. ok is false when either input is
// not a positive finite number.
func ComputeBMI(weightKg, height float64) (float64, bool) {
	if !positive(weightKg) || !positive(height) {
		return 0, false
	}
	if height >= metreThreshold {
		height /= 100
	}
	return weightKg / (height * height), true
}

// BMI formats the BMI of the raw weight and height inputs with two decimals.
// It returns "" when either input is empty or unusable, which clears the field.
func BMI(weight, height string) string {
	w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
	if err != nil {
		return ""
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(height), 64)
	if err != nil {
		return ""
	}
	v, ok := ComputeBMI(w, h)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// BMICategory buckets a BMI value the way the patient form labels it.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 24.9:
		return "Normal"
	case bmi < 29.9:
		return "Overweight"
	}
	return "Obese"
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
