// Package core provides the business logic for bulk-edit operations.
// This package has no HTTP dependencies and can be driven by any frontend.
package core

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies the record type a bulk operation works on.
type EntityKind string

const (
	KindUser     EntityKind = "USER"
	KindItem     EntityKind = "ITEM"
	KindHoldings EntityKind = "HOLDINGS_RECORD"
	KindInstance EntityKind = "INSTANCE"
)

// SpansTenants reports whether records of this kind can be owned by a
// member tenant other than the one the operator is acting in.
func (k EntityKind) SpansTenants() bool {
	return k == KindItem || k == KindHoldings
}

// IdentifierType selects which field of the input file identifies a record.
type IdentifierType string

const (
	IdentifierID              IdentifierType = "ID"
	IdentifierBarcode         IdentifierType = "BARCODE"
	IdentifierHRID            IdentifierType = "HRID"
	IdentifierFormerIDs       IdentifierType = "FORMER_IDS"
	IdentifierAccessionNumber IdentifierType = "ACCESSION_NUMBER"
	IdentifierUsername        IdentifierType = "USERNAME"
	IdentifierExternalID      IdentifierType = "EXTERNAL_SYSTEM_ID"
)

// Severity classifies entries in the operation error log.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// OperationStatus is the bulk-operation state machine.
//
// SCHEDULED -> IN_PROGRESS -> DATA_MODIFICATION on success,
// FAILED on job failure. CANCELLING is entered cooperatively and
// settles into CANCELLED between records. Terminal states are sinks.
type OperationStatus string

const (
	StatusScheduled        OperationStatus = "SCHEDULED"
	StatusInProgress       OperationStatus = "IN_PROGRESS"
	StatusDataModification OperationStatus = "DATA_MODIFICATION"
	StatusCompleted        OperationStatus = "COMPLETED"
	StatusFailed           OperationStatus = "FAILED"
	StatusCancelling       OperationStatus = "CANCELLING"
	StatusCancelled        OperationStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a sink.
func (s OperationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is allowed.
// Transitions never regress out of a terminal state.
func (s OperationStatus) CanTransition(next OperationStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusFailed ||
			next == StatusCancelling || next == StatusCancelled
	case StatusInProgress:
		return next == StatusDataModification || next == StatusFailed ||
			next == StatusCancelling || next == StatusCancelled
	case StatusDataModification:
		return next == StatusCompleted || next == StatusFailed ||
			next == StatusCancelling || next == StatusCancelled
	case StatusCancelling:
		return next == StatusCancelled || next == StatusFailed
	}
	return false
}

// TransitionSources lists the statuses allowed to move to next.
// Persistence filters status writes through it, so an illegal or late
// transition never reaches the database.
func TransitionSources(next OperationStatus) []OperationStatus {
	all := []OperationStatus{
		StatusScheduled, StatusInProgress, StatusDataModification,
		StatusCancelling, StatusCompleted, StatusFailed, StatusCancelled,
	}
	sources := make([]OperationStatus, 0, len(all))
	for _, s := range all {
		if s.CanTransition(next) {
			sources = append(sources, s)
		}
	}
	return sources
}

// BulkOperation is the aggregate root for one edit campaign.
// It is created when an identifier file arrives and mutated only at
// phase boundaries through the copy-with helpers below.
type BulkOperation struct {
	ID             uuid.UUID       `json:"id"`
	EntityKind     EntityKind      `json:"entityType"`
	IdentifierType IdentifierType  `json:"identifierType"`
	Status         OperationStatus `json:"status"`

	TotalRecords     int `json:"totalNumOfRecords"`
	ProcessedRecords int `json:"processedNumOfRecords"`
	MatchedRecords   int `json:"matchedNumOfRecords"`
	CommittedRecords int `json:"committedNumOfRecords"`
	MatchedErrors    int `json:"matchedNumOfErrors"`
	MatchedWarnings  int `json:"matchedNumOfWarnings"`

	LinkToMatchedCSV   string   `json:"linkToMatchedRecordsCsvFile,omitempty"`
	LinkToCommittedCSV string   `json:"linkToCommittedRecordsCsvFile,omitempty"`
	UsedTenants        []string `json:"usedTenants,omitempty"`

	ErrorMessage string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time `json:"startTime"`
	EndedAt      time.Time `json:"endTime,omitzero"`
}

// WithStatus returns a copy with the status replaced.
// The caller is responsible for checking CanTransition first;
// persistence enforces it again with a guard clause.
func (o BulkOperation) WithStatus(status OperationStatus) BulkOperation {
	o.Status = status
	return o
}

// WithError returns a copy carrying a terminal failure message.
// The message is sanitized so it survives CSV export of the error log.
func (o BulkOperation) WithError(msg string) BulkOperation {
	o.Status = StatusFailed
	o.ErrorMessage = SanitizeMessage(msg)
	o.EndedAt = time.Now().UTC()
	return o
}

// WithCounters returns a copy with the phase counters replaced.
func (o BulkOperation) WithCounters(total, processed, matched int) BulkOperation {
	o.TotalRecords = total
	o.ProcessedRecords = processed
	o.MatchedRecords = matched
	return o
}

// BulkOperationError is one append-only row in the operation error log.
// Rows are inserted on any non-fatal per-record failure and never mutated.
type BulkOperationError struct {
	ID              uuid.UUID `json:"id"`
	BulkOperationID uuid.UUID `json:"bulkOperationId"`
	Identifier      string    `json:"identifier"`
	Message         string    `json:"message"`
	Severity        Severity  `json:"type"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ChunkState tracks the lifecycle of one dispatched chunk.
type ChunkState string

const (
	ChunkPending   ChunkState = "PENDING"
	ChunkCompleted ChunkState = "COMPLETED"
	ChunkFailed    ChunkState = "FAILED"
)

// ExecutionChunk records one chunk's identifier range and outcome.
type ExecutionChunk struct {
	ID              uuid.UUID  `json:"id"`
	BulkOperationID uuid.UUID  `json:"bulkOperationId"`
	FirstRecord     int        `json:"firstRecordIndex"`
	LastRecord      int        `json:"lastRecordIndex"`
	State           ChunkState `json:"state"`
	FailureReason   string     `json:"failureReason,omitempty"`
}

// RuleActionType enumerates the patch actions the pipeline can apply.
type RuleActionType string

const (
	ActionReplaceWith RuleActionType = "REPLACE_WITH"
	ActionClearField  RuleActionType = "CLEAR_FIELD"
)

// RuleAction is one patch instruction within a rule.
type RuleAction struct {
	Type    RuleActionType `json:"type"`
	Updated string         `json:"updated,omitempty"`
}

// RuleDetails binds actions to a column of the unified table.
type RuleDetails struct {
	Option  string       `json:"option"`
	Actions []RuleAction `json:"actions"`
}

// Rule is a user-authored patch instruction set attached to an operation.
// Rules are immutable once the operation leaves the authoring phase.
type Rule struct {
	ID              uuid.UUID     `json:"id"`
	BulkOperationID uuid.UUID     `json:"bulkOperationId"`
	Details         []RuleDetails `json:"ruleDetails"`
}

// ErrorSink receives non-fatal per-record failures as a side effect.
// A nil sink means preview mode: failures still degrade gracefully but
// nothing is persisted.
type ErrorSink interface {
	Record(identifier, message string, severity Severity)
}
