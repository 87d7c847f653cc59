package call

// JoinRecoveryState is the consistent (phase, participant count) pair picked
// after regaining connectivity mid-join.
type JoinRecoveryState struct {
	Phase            Phase
	ParticipantCount int
}

// ResolveJoinRecovery disambiguates local state after a reconnect or delayed
// server acknowledgment during the join window. hint is the last known
// participant count, 0 when absent. preferInCall signals that live peer
// traffic was already observed, which is stronger evidence of a peer than a
// stale count of 1.
//
// Outside the join window no recovery applies. A hint of 2 or more directly
// determines the count; preferInCall only upgrades the hint==1 (or absent)
// case to inCall.
func ResolveJoinRecovery(current Phase, hint int, preferInCall bool) (JoinRecoveryState, bool) {
	if !current.InJoinWindow() {
		return JoinRecoveryState{}, false
	}

	if hint >= 2 {
		return JoinRecoveryState{Phase: PhaseInCall, ParticipantCount: hint}, true
	}
	if preferInCall {
		return JoinRecoveryState{Phase: PhaseInCall, ParticipantCount: 2}, true
	}
	return JoinRecoveryState{Phase: PhaseWaiting, ParticipantCount: 1}, true
}
