package models

// Step names one state of the onboarding workflow.
type Step string

const (
	StepGreet         Step = "greet"
	StepCollectInfo   Step = "collect_info"
	StepScanBrand     Step = "scan_brand"
	StepSelectStaff   Step = "select_staff"
	StepSetGoals      Step = "set_goals"
	StepGeneratePlan  Step = "generate_plan"
	StepAwaitApproval Step = "await_approval"
	StepDeploy        Step = "deploy"
	StepVerify        Step = "verify"
	StepErrorHandler  Step = "error_handler"
)

// Steps lists every defined workflow step, in dependency order.
func Steps() []Step {
	return []Step{
		StepGreet,
		StepCollectInfo,
		StepScanBrand,
		StepSelectStaff,
		StepSetGoals,
		StepGeneratePlan,
		StepAwaitApproval,
		StepDeploy,
		StepVerify,
		StepErrorHandler,
	}
}

// Valid reports whether s is a defined workflow step.
func (s Step) Valid() bool {
	switch s {
	case StepGreet, StepCollectInfo, StepScanBrand, StepSelectStaff, StepSetGoals,
		StepGeneratePlan, StepAwaitApproval, StepDeploy, StepVerify, StepErrorHandler:
		return true
	default:
		return false
	}
}
