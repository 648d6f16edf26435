package record

import "time"

// Domain payloads. These are what clinicians author; the sync engine never
// inspects them.

type BloodPressure struct {
	Systolic   int       `json:"systolic"`
	Diastolic  int       `json:"diastolic"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MeasurementType distinguishes fasting from post-prandial readings.
type BloodSugar struct {
	Value           float64   `json:"value"`
	Unit            string    `json:"unit"`
	MeasurementType string    `json:"measurement_type"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type Prescription struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
	IsDeleted    bool   `json:"is_deleted"`
}

type MedicalHistory struct {
	HasDiabetes     bool   `json:"has_diabetes"`
	HasHypertension bool   `json:"has_hypertension"`
	HasHeartAttack  bool   `json:"has_heart_attack"`
	HasStroke       bool   `json:"has_stroke"`
	HasKidneyIssues bool   `json:"has_kidney_issues"`
	Notes           string `json:"notes,omitempty"`
}

type Protocol struct {
	Name         string `json:"name"`
	FollowUpDays int    `json:"follow_up_days"`
}
