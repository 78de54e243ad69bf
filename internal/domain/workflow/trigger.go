package workflow

// Trigger represents an event that can cause a lifecycle transition
type Trigger string

const (
	TriggerSubmit           Trigger = "SUBMIT"
	TriggerValidate         Trigger = "VALIDATE"
	TriggerRejectValidation Trigger = "REJECT_VALIDATION"
	TriggerChainComplete    Trigger = "CHAIN_COMPLETE"
	TriggerChainReject      Trigger = "CHAIN_REJECT"
	TriggerConfirmBAST      Trigger = "CONFIRM_BAST"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
