package domain

// Wire types for the processings backend REST contract. Field names and
// shapes follow the backend OpenAPI schema.

// ProcessingStatus is the backend's processing state taxonomy.
type ProcessingStatus string

const (
	ProcessingSuccess            ProcessingStatus = "success"
	ProcessingInProgress         ProcessingStatus = "processing"
	ProcessingPreconditionError  ProcessingStatus = "precondition_error"
	ProcessingConfigurationError ProcessingStatus = "configuration_error"
	ProcessingError              ProcessingStatus = "processing_error"
	ProcessingGenerationError    ProcessingStatus = "generation_error"
	ProcessingUploadError        ProcessingStatus = "upload_error"
)

// RecommendationStatus is the backend's per-pathology review state.
type RecommendationStatus string

const (
	RecommendationPending  RecommendationStatus = "pending"
	RecommendationAccepted RecommendationStatus = "accepted"
	RecommendationRejected RecommendationStatus = "rejected"
)

// Processing is one processing transaction as returned by the backend.
type Processing struct {
	UID              string           `json:"uid"`
	StudyInstanceUID string           `json:"study_instance_uid"`
	StudyCreatedAt   string           `json:"study_created_at"`
	PatientID        string           `json:"patient_id"`
	PatientName      string           `json:"patient_name"`
	Status           ProcessingStatus `json:"status"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}

// ProcessingPathology is one detected finding on a processing transaction.
type ProcessingPathology struct {
	PathologyKey               string               `json:"pathology_key"`
	RecommendationStatus       RecommendationStatus `json:"recommendation_status"`
	RecommendationPhysicianKey string               `json:"recommendation_physician_key"`
	CreatedAt                  string               `json:"created_at"`
	UpdatedAt                  string               `json:"updated_at"`
}

// ListProcessingsResponse is the paginated listing envelope.
type ListProcessingsResponse struct {
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int          `json:"total"`
	Items   []Processing `json:"items"`
}

// ListProcessingsParams are the query parameters accepted by the listing
// endpoint. Nil/zero fields are omitted from the request.
type ListProcessingsParams struct {
	Page              int
	PerPage           int
	SearchQuery       string
	PatientName       string
	StudyCreatedAtGTE string
	StudyCreatedAtLTE string
	Status            ProcessingStatus
	PathologyKeys     []string
}

// UpdateProcessingRequest is the body of PUT /processings/{uid}.
type UpdateProcessingRequest struct {
	Status        ProcessingStatus `json:"status"`
	PathologyKeys []string         `json:"pathology_keys"`
}

// PathologyUpdate is one entry of a batch pathology update.
type PathologyUpdate struct {
	PathologyKey         string               `json:"pathology_key"`
	RecommendationStatus RecommendationStatus `json:"recommendation_status"`
}

// UpdatePathologiesRequest is the body of the batch endpoint
// PUT /processings/{uid}/pathologies.
type UpdatePathologiesRequest struct {
	Pathologies []PathologyUpdate `json:"pathologies"`
}

// UpdatePathologyRequest is the body of the legacy single-item endpoint
// PUT /processings/{uid}/pathologies/{key}.
type UpdatePathologyRequest struct {
	RecommendationStatus RecommendationStatus `json:"recommendation_status"`
}

// GenerateReportRequest is the body of POST /processings/report.
type GenerateReportRequest struct {
	ProcessingUIDs []string `json:"processing_uids"`
}
