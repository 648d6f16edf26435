package record

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnknownType = errors.New("unknown record type")
)

// Type identifies one syncable record kind. Each type syncs through its own
// coordinator with its own batch size and cadence.
type Type string

const (
	TypeBloodPressure  Type = "blood_pressure"
	TypeBloodSugar     Type = "blood_sugar"
	TypePrescription   Type = "prescription"
	TypeMedicalHistory Type = "medical_history"
	TypeProtocol       Type = "protocol"
)

func Types() []Type {
	return []Type{
		TypeBloodPressure,
		TypeBloodSugar,
		TypePrescription,
		TypeMedicalHistory,
		TypeProtocol,
	}
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", ErrUnknownType
}

// Envelope is the wire and storage form of one record. Domain fields travel
// opaquely in Payload; the sync engine only touches the envelope.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// PrimaryID satisfies the sync engine's payload contract.
func (e Envelope) PrimaryID() uuid.UUID { return e.ID }

// NewEnvelope wraps a domain payload into a freshly identified envelope.
// Ids are assigned client-side at creation and never reused.
func NewEnvelope(patientID uuid.UUID, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	now := time.Now().UTC()
	return Envelope{
		ID:        uuid.New(),
		PatientID: patientID,
		Payload:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Touch advances UpdatedAt after a local edit.
func (e *Envelope) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// SoftDelete marks the record deleted without dropping the row; deletion
// syncs like any other edit.
func (e *Envelope) SoftDelete() {
	now := time.Now().UTC()
	e.DeletedAt = &now
	e.UpdatedAt = now
}
