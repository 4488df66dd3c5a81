package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-review-server/internal/domain"
)

func TestMapStatusIsTotal(t *testing.T) {
	tests := []struct {
		name     string
		wire     domain.ProcessingStatus
		expected domain.StudyStatus
	}{
		{name: "success", wire: domain.ProcessingSuccess, expected: domain.StudyStatusCompleted},
		{name: "processing", wire: domain.ProcessingInProgress, expected: domain.StudyStatusProcessing},
		{name: "precondition error", wire: domain.ProcessingPreconditionError, expected: domain.StudyStatusProcessingError},
		{name: "configuration error", wire: domain.ProcessingConfigurationError, expected: domain.StudyStatusProcessingError},
		{name: "processing error", wire: domain.ProcessingError, expected: domain.StudyStatusProcessingError},
		{name: "generation error", wire: domain.ProcessingGenerationError, expected: domain.StudyStatusProcessingError},
		{name: "upload error", wire: domain.ProcessingUploadError, expected: domain.StudyStatusProcessingError},
		{name: "unrecognized fails safe", wire: domain.ProcessingStatus("weird_new_status"), expected: domain.StudyStatusProcessingError},
		{name: "empty fails safe", wire: domain.ProcessingStatus(""), expected: domain.StudyStatusProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapStatus(tt.wire))
			// deterministic on repeat
			assert.Equal(t, MapStatus(tt.wire), MapStatus(tt.wire))
		})
	}
}

func TestMapStatusToWire(t *testing.T) {
	assert.Equal(t, domain.ProcessingSuccess, MapStatusToWire(domain.StudyStatusCompleted))
	assert.Equal(t, domain.ProcessingInProgress, MapStatusToWire(domain.StudyStatusProcessing))
	assert.Equal(t, domain.ProcessingError, MapStatusToWire(domain.StudyStatusProcessingError))
	assert.Equal(t, domain.ProcessingError, MapStatusToWire(domain.StudyStatusDataError))
}

func TestMapDecisionToWire(t *testing.T) {
	assert.Equal(t, domain.RecommendationAccepted, MapDecisionToWire(domain.PathologyAccepted))
	assert.Equal(t, domain.RecommendationAccepted, MapDecisionToWire(domain.PathologyCorrected))
	assert.Equal(t, domain.RecommendationRejected, MapDecisionToWire(domain.PathologyRejected))
	assert.Equal(t, domain.RecommendationPending, MapDecisionToWire(domain.PathologyPending))
}

func pathology(key string, status domain.RecommendationStatus, physician string) domain.ProcessingPathology {
	return domain.ProcessingPathology{
		PathologyKey:               key,
		RecommendationStatus:       status,
		RecommendationPhysicianKey: physician,
		UpdatedAt:                  "2024-03-01T10:00:00Z",
	}
}

func TestFilterVisibleHidesRejected(t *testing.T) {
	records := []domain.ProcessingPathology{
		pathology("coronary_сalcium", domain.RecommendationPending, ""),
		pathology("osteoporosis", domain.RecommendationRejected, ""),
		pathology("lungNodules", domain.RecommendationAccepted, ""),
	}

	visible := FilterVisible(records)
	require.Len(t, visible, 2)
	assert.Equal(t, "coronary_сalcium", visible[0].PathologyKey)
	assert.Equal(t, "lungNodules", visible[1].PathologyKey)
}

func TestDisplayPathologyNamesOrderAndDedup(t *testing.T) {
	records := []domain.ProcessingPathology{
		pathology("lungNodules", domain.RecommendationPending, ""),
		pathology("coronary_сalcium", domain.RecommendationAccepted, ""),
		// legacy alias of the previous key, same display identity
		pathology("coronaryCalcium", domain.RecommendationAccepted, ""),
		pathology("osteoporosis", domain.RecommendationRejected, ""),
	}

	names := DisplayPathologyNames(records)
	assert.Equal(t, []string{"Lung nodules", "Coronary calcium"}, names)
}

func TestRecommendedPhysiciansFirstSeenOrder(t *testing.T) {
	records := []domain.ProcessingPathology{
		pathology("aorticDilation", domain.RecommendationPending, ""),  // cardiologist, cardiac_surgeon
		pathology("coronaryCalcium", domain.RecommendationPending, ""), // cardiologist (duplicate)
		pathology("lungNodules", domain.RecommendationPending, ""),     // general_practitioner, oncologist
		pathology("osteoporosis", domain.RecommendationRejected, ""),   // hidden
	}

	names := RecommendedPhysicians(records)
	assert.Equal(t, []string{"Cardiologist", "Cardiac surgeon", "General practitioner", "Oncologist"}, names)
}

func TestAPIRecommendedPhysicians(t *testing.T) {
	records := []domain.ProcessingPathology{
		pathology("coronary_сalcium", domain.RecommendationPending, "cardiologist"),
		pathology("lungNodules", domain.RecommendationAccepted, "oncologist"),
		pathology("aorta_dilation", domain.RecommendationAccepted, "cardiologist"),
		pathology("osteoporosis", domain.RecommendationRejected, "endocrinologist"),
		pathology("normal", domain.RecommendationPending, ""),
	}

	names := APIRecommendedPhysicians(records)
	assert.Equal(t, []string{"Cardiologist", "Oncologist"}, names)
}

func TestMapStudy(t *testing.T) {
	p := domain.Processing{
		UID:              "proc-001",
		StudyInstanceUID: "1.2.840.113619.2.55",
		StudyCreatedAt:   "2024-03-01T09:30:00Z",
		PatientID:        "P-42",
		PatientName:      "Ivanov I.I.",
		Status:           domain.ProcessingSuccess,
	}
	records := []domain.ProcessingPathology{
		pathology("coronary_сalcium", domain.RecommendationPending, "cardiologist"),
		pathology("osteoporosis", domain.RecommendationRejected, ""),
	}

	study := MapStudy(p, records)

	assert.Equal(t, "proc-001", study.UID)
	assert.Equal(t, "1.2.840.113619.2.55", study.StudyInstanceUID)
	assert.Equal(t, domain.StudyStatusCompleted, study.Status)
	assert.Equal(t, domain.DescriptionCompleted, study.DescriptionStatus)
	assert.Equal(t, domain.ProcessingSuccess, study.StatusKey)
	assert.Equal(t, []string{"Coronary calcium"}, study.Pathology)
	assert.Equal(t, []string{"Cardiologist"}, study.DoctorRecommendations)
	assert.Equal(t, []string{"coronary_сalcium", "osteoporosis"}, study.PathologyKeys)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), study.Date)
}

func TestMapStudyWithoutPathologies(t *testing.T) {
	study := MapStudy(domain.Processing{UID: "proc-002", Status: domain.ProcessingInProgress}, nil)

	assert.Equal(t, domain.DescriptionInProgress, study.DescriptionStatus)
	assert.NotNil(t, study.Pathology)
	assert.Empty(t, study.Pathology)
	assert.Empty(t, study.DoctorRecommendations)
}

func TestMapPathologyState(t *testing.T) {
	decided := MapPathologyState(pathology("osteoporosis", domain.RecommendationAccepted, ""))
	assert.Equal(t, "osteoporosis", decided.ID)
	assert.Equal(t, domain.PathologyAccepted, decided.Status)
	assert.Equal(t, "Osteoporosis", decided.OriginalText)
	assert.Equal(t, "Osteoporosis", decided.EditedText)
	require.NotNil(t, decided.Timestamp)

	pending := MapPathologyState(pathology("lungNodules", domain.RecommendationPending, ""))
	assert.Equal(t, domain.PathologyPending, pending.Status)
	assert.Nil(t, pending.Timestamp)
}

func TestIsEffectivelyComplete(t *testing.T) {
	completed := domain.Study{Status: domain.StudyStatusCompleted, DescriptionStatus: domain.DescriptionCompleted}
	inProgress := domain.Study{Status: domain.StudyStatusProcessing, DescriptionStatus: domain.DescriptionInProgress}
	failed := domain.Study{Status: domain.StudyStatusProcessingError, DescriptionStatus: domain.DescriptionInProgress}

	pendingStates := map[string]domain.PathologyState{
		"lungNodules": {ID: "lungNodules", Status: domain.PathologyPending},
	}
	rejectedStates := map[string]domain.PathologyState{
		"lungNodules":  {ID: "lungNodules", Status: domain.PathologyRejected},
		"osteoporosis": {ID: "osteoporosis", Status: domain.PathologyRejected},
	}
	mixedStates := map[string]domain.PathologyState{
		"lungNodules":  {ID: "lungNodules", Status: domain.PathologyRejected},
		"osteoporosis": {ID: "osteoporosis", Status: domain.PathologyAccepted},
	}

	assert.True(t, IsEffectivelyComplete(completed, pendingStates), "raw completed wins")
	assert.True(t, IsEffectivelyComplete(inProgress, nil), "no findings at all")
	assert.True(t, IsEffectivelyComplete(failed, pendingStates), "error state wins")
	assert.True(t, IsEffectivelyComplete(inProgress, rejectedStates), "every finding rejected")
	assert.False(t, IsEffectivelyComplete(inProgress, pendingStates))
	assert.False(t, IsEffectivelyComplete(inProgress, mixedStates))
}

func TestNoDataForStudy(t *testing.T) {
	assert.True(t, NoDataForStudy(domain.Study{Status: domain.StudyStatusProcessing}))
	assert.True(t, NoDataForStudy(domain.Study{Status: domain.StudyStatusProcessingError}))
	assert.True(t, NoDataForStudy(domain.Study{Status: domain.StudyStatusDataError}))
	assert.False(t, NoDataForStudy(domain.Study{Status: domain.StudyStatusCompleted}))
}

func TestParseWireTime(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), ParseWireTime("2024-03-01T09:30:00Z"))
	assert.False(t, ParseWireTime("2024-03-01T09:30:00.123456Z").IsZero())
	assert.False(t, ParseWireTime("2024-03-01T09:30:00").IsZero())
	assert.True(t, ParseWireTime("not a time").IsZero())
	assert.True(t, ParseWireTime("").IsZero())
}
