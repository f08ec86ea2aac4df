package studio

// Phase 生成流程所处阶段
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCheckingAuth Phase = "checking_auth"
	PhaseBlocked      Phase = "blocked"
	PhaseRequesting   Phase = "requesting"
	PhaseConverting   Phase = "converting"
	PhaseUploading    Phase = "uploading"
	PhaseResolving    Phase = "resolving"
	PhaseDone         Phase = "done"
	PhaseError        Phase = "error"
)

// 合法的阶段迁移
var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseCheckingAuth},
	PhaseBlocked:      {PhaseCheckingAuth},
	PhaseDone:         {PhaseCheckingAuth},
	PhaseError:        {PhaseCheckingAuth},
	PhaseCheckingAuth: {PhaseBlocked, PhaseRequesting, PhaseError},
	PhaseRequesting:   {PhaseConverting, PhaseError},
	PhaseConverting:   {PhaseUploading, PhaseError},
	PhaseUploading:    {PhaseResolving, PhaseError},
	PhaseResolving:    {PhaseDone, PhaseError},
}

// InFlight 是否有一次生成正在进行
func (p Phase) InFlight() bool {
	switch p {
	case PhaseCheckingAuth, PhaseRequesting, PhaseConverting, PhaseUploading, PhaseResolving:
		return true
	}
	return false
}

// CanTransition 判断能否从 p 迁移到 to
func (p Phase) CanTransition(to Phase) bool {
	for _, next := range transitions[p] {
		if next == to {
			return true
		}
	}
	return false
}
