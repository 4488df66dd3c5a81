package domain

import (
	"time"
)

// StudyStatus is the dashboard-facing status taxonomy. The seven wire
// statuses collapse onto these four values (see internal/mapper).
type StudyStatus string

const (
	StudyStatusCompleted       StudyStatus = "completed"
	StudyStatusProcessing      StudyStatus = "processing"
	StudyStatusProcessingError StudyStatus = "processing_error"
	StudyStatusDataError       StudyStatus = "data_error"
)

// DescriptionStatus indicates whether the study description is finished.
type DescriptionStatus string

const (
	DescriptionInProgress DescriptionStatus = "in_progress"
	DescriptionCompleted  DescriptionStatus = "completed"
)

// PathologyStatus is the reviewer-facing decision state for one finding.
// Corrected is distinct from accepted in the UI but serializes to the wire
// as accepted.
type PathologyStatus string

const (
	PathologyPending   PathologyStatus = "pending"
	PathologyAccepted  PathologyStatus = "accepted"
	PathologyRejected  PathologyStatus = "rejected"
	PathologyCorrected PathologyStatus = "corrected"
)

// DecisionAction is a reviewer action on a pending or decided finding.
type DecisionAction string

const (
	ActionAccept DecisionAction = "accept"
	ActionReject DecisionAction = "reject"
)

// DiagnosisLabel is the per-study roll-up of all pathology decisions.
type DiagnosisLabel string

const (
	DiagnosisNotReviewed DiagnosisLabel = "not_reviewed"
	DiagnosisAllRejected DiagnosisLabel = "all_rejected"
	DiagnosisConfirmed   DiagnosisLabel = "confirmed"
)

// PathologyState is the decision state of one (study, pathology key) pair.
type PathologyState struct {
	ID           string          `json:"id"`
	Status       PathologyStatus `json:"status"`
	OriginalText string          `json:"original_text"`
	EditedText   string          `json:"edited_text"`
	IsEditing    bool            `json:"is_editing"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
}

// Decided reports whether the reviewer has resolved this finding.
func (s PathologyState) Decided() bool {
	return s.Status != PathologyPending
}

// Study is the dashboard representation of one processing record, derived
// from the wire Processing and its pathology records.
type Study struct {
	UID              string      `json:"uid"`
	StudyInstanceUID string      `json:"study_instance_uid"`
	PatientID        string      `json:"patient_id"`
	PatientName      string      `json:"patient_name"`
	Date             time.Time   `json:"date"`
	Status           StudyStatus `json:"status"`

	// Pathology holds display names of visible findings in the order the
	// backend reported them. Rejected findings never appear here.
	Pathology []string `json:"pathology"`

	DescriptionStatus DescriptionStatus `json:"description_status"`

	// DoctorRecommendations is the first-seen-ordered unique list of
	// recommended physician display names for the visible findings.
	DoctorRecommendations []string `json:"doctor_recommendations,omitempty"`

	// StatusKey and PathologyKeys retain the raw wire taxonomy for
	// round-tripping filter and update requests.
	StatusKey     ProcessingStatus `json:"status_key,omitempty"`
	PathologyKeys []string         `json:"pathology_keys,omitempty"`

	// PathologyStates carries per-finding decision detail for views that
	// need it. Nil for list rows.
	PathologyStates map[string]PathologyState `json:"pathology_states,omitempty"`
}

// StudyPage is one page of studies together with pagination metadata.
type StudyPage struct {
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Items      []Study `json:"items"`
}
