package bill

// Situation roots, matched against the folded descricaoSituacao.
var (
	approvalRoots  = []string{"aprovad", "sancionad"}
	rejectionRoots = []string{"rejeitad", "arquivad"}
)

// ResolveStatus maps a procedural-situation description to a lifecycle state.
// Approval is checked before rejection; anything else is still in voting.
func ResolveStatus(description string) Status {
	text := fold(description)
	switch {
	case containsAny(text, approvalRoots):
		return StatusApproved
	case containsAny(text, rejectionRoots):
		return StatusRejected
	default:
		return StatusVoting
	}
}
