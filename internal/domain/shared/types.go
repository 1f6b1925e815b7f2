package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Outcome distinguishes a fully applied operation from one whose primary write
// succeeded while some dependent writes did not.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomePartial Outcome = "PARTIAL"
)

// Operation names a dependent write that can fail independently of the primary one
type Operation string

const (
	OperationCreateDebtRecord Operation = "CREATE_DEBT_RECORD"
	OperationCascadeUpdate    Operation = "CASCADE_UPDATE"
	OperationEnqueueRepair    Operation = "ENQUEUE_REPAIR"
)

// Warning describes one failed sub-operation of a partially successful call
type Warning struct {
	Operation Operation `json:"operation"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
}

// OutcomeOf reports PARTIAL when any warning was collected
func OutcomeOf(warnings []Warning) Outcome {
	if len(warnings) > 0 {
		return OutcomePartial
	}
	return OutcomeSuccess
}
