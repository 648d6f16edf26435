package record

import (
	"encoding/json"
	"fmt"
)

// ValidatePayload checks a pushed payload against its record type's schema.
// Returns the offending field and a message on failure.
func ValidatePayload(recordType Type, raw json.RawMessage) (field, message string, ok bool) {
	if len(raw) == 0 {
		return "payload", "payload is empty", false
	}

	switch recordType {
	case TypeBloodPressure:
		var bp BloodPressure
		if err := strictUnmarshal(raw, &bp); err != nil {
			return "payload", err.Error(), false
		}
		if bp.Systolic < 50 || bp.Systolic > 300 {
			return "systolic", fmt.Sprintf("systolic %d out of range", bp.Systolic), false
		}
		if bp.Diastolic < 30 || bp.Diastolic > 200 {
			return "diastolic", fmt.Sprintf("diastolic %d out of range", bp.Diastolic), false
		}

	case TypeBloodSugar:
		var bs BloodSugar
		if err := strictUnmarshal(raw, &bs); err != nil {
			return "payload", err.Error(), false
		}
		if bs.Value <= 0 {
			return "value", "blood sugar value must be positive", false
		}
		if bs.Unit != "mg/dL" && bs.Unit != "mmol/L" && bs.Unit != "%" {
			return "unit", fmt.Sprintf("unknown unit %q", bs.Unit), false
		}

	case TypePrescription:
		var p Prescription
		if err := strictUnmarshal(raw, &p); err != nil {
			return "payload", err.Error(), false
		}
		if p.Name == "" {
			return "name", "prescription name is required", false
		}

	case TypeMedicalHistory:
		var h MedicalHistory
		if err := strictUnmarshal(raw, &h); err != nil {
			return "payload", err.Error(), false
		}

	case TypeProtocol:
		var p Protocol
		if err := strictUnmarshal(raw, &p); err != nil {
			return "payload", err.Error(), false
		}
		if p.FollowUpDays < 0 {
			return "follow_up_days", "follow-up days cannot be negative", false
		}

	default:
		return "type", ErrUnknownType.Error(), false
	}

	return "", "", true
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
