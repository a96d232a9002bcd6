package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyInput is returned when a transcript is empty or whitespace-only.
// It is the only hard failure in the pipeline; every other condition degrades
// to a lower-confidence but usable result.
var ErrEmptyInput = errors.New("transcript is empty or whitespace only")

// SourceFormat identifies the transcript layout detected by the parser.
type SourceFormat string

const (
	FormatPlaudTxt        SourceFormat = "plaud_txt"
	FormatNottaTxt        SourceFormat = "notta_txt"
	FormatNottaCSV        SourceFormat = "notta_csv"
	FormatSRT             SourceFormat = "srt"
	FormatMarkdownSummary SourceFormat = "plaud_markdown"
	FormatUnknown         SourceFormat = "unknown"
)

// Role is the resolved conversational role of a speaker.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleUnknown Role = "unknown"
)

// Utterance is one attributable unit of dialogue. Role may be adjusted by the
// classifier; everything else is fixed at parse time.
type Utterance struct {
	Index     int    `json:"index"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Role      Role   `json:"role"`
}

// ParsedConversation is the parser output: ordered utterances plus raw-size
// counters. It is read-only after classification.
type ParsedConversation struct {
	Format          SourceFormat `json:"format"`
	Utterances      []Utterance  `json:"utterances"`
	TotalLines      int          `json:"total_lines"`
	TotalCharacters int          `json:"total_characters"`
}

// ValidationResult reports how dental the transcript looks. Failure is
// advisory: the pipeline continues and the caller decides what to surface.
type ValidationResult struct {
	IsValid           bool    `json:"is_valid"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason,omitempty"`
	DentalScore       float64 `json:"dental_score"`
	NonDentalScore    float64 `json:"non_dental_score"`
	ConversationScore float64 `json:"conversation_score"`
}

// Method records which path produced a derived value.
type Method string

const (
	MethodAIPrimary Method = "ai_primary"
	MethodRuleBased Method = "rule_based"
	MethodHybrid    Method = "hybrid"
)

// SOAPRecord is a four-section clinical note. Sections are never empty:
// missing evidence yields a canned placeholder instead.
type SOAPRecord struct {
	Subjective string             `json:"subjective"`
	Objective  string             `json:"objective"`
	Assessment string             `json:"assessment"`
	Plan       string             `json:"plan"`
	Confidence float64            `json:"confidence"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
	Method     Method             `json:"method"`
	// AuditTrail keeps the losing candidate when the merger adopts one
	// source wholesale, so a degraded result stays explainable.
	AuditTrail *SOAPRecord `json:"audit_trail,omitempty"`
}

// Identification names the consultation participants.
type Identification struct {
	PatientName       string  `json:"patient_name"`
	DoctorName        string  `json:"doctor_name"`
	PatientConfidence float64 `json:"confidence_patient"`
	DoctorConfidence  float64 `json:"confidence_doctor"`
	Reasoning         string  `json:"reasoning,omitempty"`
	Method            Method  `json:"method"`
}

// MetricScore is one quality metric with the evidence that produced it.
// Reasoning is built from the same counts as the score, so the number is
// always auditable against the visible evidence.
type MetricScore struct {
	Score            float64        `json:"score"`
	Reasoning        string         `json:"reasoning"`
	Evidence         map[string]int `json:"evidence,omitempty"`
	InsufficientData bool           `json:"insufficient_data,omitempty"`
}

// QualityAssessment evaluates the consultation itself, not the note.
type QualityAssessment struct {
	SuccessPossibility         MetricScore `json:"success_possibility"`
	PatientUnderstanding       MetricScore `json:"patient_understanding"`
	TreatmentConsentLikelihood MetricScore `json:"treatment_consent_likelihood"`
	ImprovementSuggestions     []string    `json:"improvement_suggestions"`
	PositiveAspects            []string    `json:"positive_aspects"`
	Method                     Method      `json:"method"`
}

// Result is the final record for one transcript, serializable as one JSON
// line in an append-only log.
type Result struct {
	SessionID      string             `json:"session_id"`
	FileName       string             `json:"file_name"`
	Format         SourceFormat       `json:"format"`
	Validation     ValidationResult   `json:"validation"`
	Identification Identification     `json:"identification"`
	SOAP           SOAPRecord         `json:"soap_record"`
	Quality        QualityAssessment  `json:"quality"`
	Conversation   ParsedConversation `json:"conversation"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// AIClient is the external text-generation collaborator. Implementations
// translate the wire contract into pipeline types and default any malformed
// fields; the pipeline treats every error as AI-unavailable and falls back to
// the rule path without retry.
type AIClient interface {
	IdentifySpeakers(ctx context.Context, conversation string) (*Identification, error)
	GenerateSOAP(ctx context.Context, conversation, patientName, doctorName string) (*SOAPRecord, error)
	AssessQuality(ctx context.Context, conversation string, soap *SOAPRecord) (*QualityAssessment, error)
}

// clamp bounds evidence-derived scores away from absolute certainty.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampScore applies the shared [0.05, 0.95] policy.
func clampScore(v float64) float64 {
	return clamp(v, 0.05, 0.95)
}
