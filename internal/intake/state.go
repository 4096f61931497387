// Package intake runs the patient intake conversation: it collects and
// confirms patient details, matches providers and books an appointment.
package intake

// State is a step of the intake conversation.
type State string

const (
	StateGreet            State = "GREET"
	StateCheckPatient     State = "CHECK_PATIENT"
	StateConfirmReturning State = "CONFIRM_RETURNING"
	StateCollectPatient   State = "COLLECT_PATIENT"
	StateConfirmPatient   State = "CONFIRM_PATIENT"
	StateCollectInsurance State = "COLLECT_INSURANCE"
	StateConfirmInsurance State = "CONFIRM_INSURANCE"
	StateCollectAddress   State = "COLLECT_ADDRESS"
	// StateValidateAddress is entered and left within the turn that submits
	// an address. It shows up in Outcome.Path but a session never rests there.
	StateValidateAddress State = "VALIDATE_ADDRESS"
	StateConfirmAddress  State = "CONFIRM_ADDRESS"
	StateCollectMedical  State = "COLLECT_MEDICAL"
	StateSelectProvider  State = "SELECT_PROVIDER"
	StateSelectTime      State = "SELECT_TIME"
	StateConfirm         State = "CONFIRM"
	StateEnd             State = "END"
)

// AllStates lists the observable states in flow order.
var AllStates = []State{
	StateGreet, StateCheckPatient, StateConfirmReturning, StateCollectPatient,
	StateConfirmPatient, StateCollectInsurance, StateConfirmInsurance,
	StateCollectAddress, StateValidateAddress, StateConfirmAddress,
	StateCollectMedical, StateSelectProvider, StateSelectTime, StateConfirm, StateEnd,
}

func (s State) Terminal() bool {
	return s == StateEnd
}

// IsConfirmation reports whether s asks the user to confirm a section.
func (s State) IsConfirmation() bool {
	switch s {
	case StateConfirmPatient, StateConfirmInsurance, StateConfirmAddress, StateConfirm:
		return true
	}
	return false
}
