package workflow

// State is a document lifecycle status. Values are stored verbatim in the
// documents table and shown to users.
type State string

const (
	StateDraft             State = "Draft"
	StatePendingValidation State = "Pending Validation"
	StatePendingApproval   State = "Pending Approval"
	StateWaitingPO         State = "Waiting PO"
	StatePendingBAST       State = "Pending BAST"
	StateCompleted         State = "Completed"
	StateRejected          State = "Rejected"
)

var validStates = map[State]bool{
	StateDraft:             true,
	StatePendingValidation: true,
	StatePendingApproval:   true,
	StateWaitingPO:         true,
	StatePendingBAST:       true,
	StateCompleted:         true,
	StateRejected:          true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
}

// constructionStates allow the approval chain to be edited
var constructionStates = map[State]bool{
	StateDraft:             true,
	StatePendingValidation: true,
}

// IsTerminal returns true if no further transitions are possible
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsConstruction returns true while the approval chain may still be edited
func (s State) IsConstruction() bool {
	return constructionStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// AllStates returns every lifecycle state in display order
func AllStates() []State {
	return []State{
		StateDraft,
		StatePendingValidation,
		StatePendingApproval,
		StateWaitingPO,
		StatePendingBAST,
		StateCompleted,
		StateRejected,
	}
}
