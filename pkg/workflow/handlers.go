package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/relayone/onboarding/pkg/collaborators"
	"github.com/relayone/onboarding/pkg/intent"
	"github.com/relayone/onboarding/pkg/models"
)

// HandlerFunc executes the work of one workflow step. It receives a clone of
// the current state plus the latest user message ("" when the step was entered
// without new input) and returns a partial-state update. Handlers never
// propagate errors: every collaborator failure is converted into an update
// carrying the bumped error counter and a non-technical recovery message.
type HandlerFunc func(ctx context.Context, state *models.WorkflowState, message string) *models.Update

// Handlers binds the step handlers to their external collaborators.
type Handlers struct {
	brandScanner  collaborators.BrandScanner
	planGenerator collaborators.PlanGenerator
	deployer      collaborators.Deployer
	credentials   collaborators.CredentialStore
	logger        *slog.Logger
}

// NewHandlers creates the handler set for the workflow steps.
func NewHandlers(
	brandScanner collaborators.BrandScanner,
	planGenerator collaborators.PlanGenerator,
	deployer collaborators.Deployer,
	credentials collaborators.CredentialStore,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		brandScanner:  brandScanner,
		planGenerator: planGenerator,
		deployer:      deployer,
		credentials:   credentials,
		logger:        logger,
	}
}

// For returns the handler for a workflow step. Total over the step enum.
func (h *Handlers) For(step models.Step) HandlerFunc {
	switch step {
	case models.StepGreet:
		return h.greet
	case models.StepCollectInfo:
		return h.collectInfo
	case models.StepScanBrand:
		return h.scanBrand
	case models.StepSelectStaff:
		return h.selectStaff
	case models.StepSetGoals:
		return h.setGoals
	case models.StepGeneratePlan:
		return h.generatePlan
	case models.StepAwaitApproval:
		return h.awaitApproval
	case models.StepDeploy:
		return h.deploy
	case models.StepVerify:
		return h.verify
	case models.StepErrorHandler:
		return h.errorHandler
	default:
		// Unknown steps re-prompt instead of crashing the session.
		return func(_ context.Context, _ *models.WorkflowState, _ string) *models.Update {
			return (&models.Update{}).Say("Sorry, I lost my place for a moment. Could you repeat that?")
		}
	}
}

func (h *Handlers) greet(_ context.Context, _ *models.WorkflowState, _ string) *models.Update {
	return (&models.Update{}).Say(
		"Welcome! I'm your onboarding assistant. I'll set up your AI marketing staff in a few minutes. " +
			"To start, what's your business website?")
}

// minManualDescriptionLength separates a business description from a mistyped
// URL attempt on the manual-fields branch.
const minManualDescriptionLength = 20

func (h *Handlers) collectInfo(_ context.Context, state *models.WorkflowState, message string) *models.Update {
	update := &models.Update{}

	if message == "" {
		return update.Say("What's your business website? You can paste the address, or say \"no website\" if you don't have one yet.")
	}

	url, outcome := intent.ExtractURL(message)

	switch outcome {
	case intent.URLFound:
		update.WebsiteURL = models.StringPtr(url)

		return update.Say(fmt.Sprintf("Great — taking a look at %s now.", url))

	case intent.URLNone:
		// A URL retained from an earlier failed scan would route straight
		// back into the scan, so the manual branch forgets it.
		update.WebsiteURL = models.StringPtr("")

		return update.Say("No problem — tell me a bit about your business instead: the name, what you do, and who your customers are.")

	default:
		// A long enough reply while no URL is on file is the manual-fields
		// answer: build the brand profile straight from the description.
		if len(strings.TrimSpace(message)) >= minManualDescriptionLength {
			profile, err := json.Marshal(map[string]string{
				"source":      "manual",
				"description": strings.TrimSpace(message),
			})
			if err == nil {
				update.BrandProfile = models.RawPtr(profile)

				return update.Say("Thanks, that's plenty to work with.")
			}
		}

		return update.Say("I couldn't spot a website address in that. Could you paste it? Or say \"no website\" and we'll go without one.")
	}
}

func (h *Handlers) scanBrand(ctx context.Context, state *models.WorkflowState, _ string) *models.Update {
	update := &models.Update{}

	profile, err := h.brandScanner.Analyze(ctx, state.WebsiteURL)
	if err != nil {
		h.logger.WarnContext(ctx, "Brand analysis failed",
			"thread_id", state.ThreadID, "url", state.WebsiteURL, "error", err)

		return update.Fail(state.ErrorCount, err.Error(),
			"I had trouble reading that website. Could you double-check the address and send it again?")
	}

	update.BrandProfile = models.RawPtr(profile)
	update.LastError = models.StringPtr("")

	return update.Say("Done — I've analyzed your site and built your brand profile.")
}

func (h *Handlers) selectStaff(_ context.Context, state *models.WorkflowState, message string) *models.Update {
	update := &models.Update{}

	if message == "" {
		return update.Say(staffPrompt())
	}

	roles := intent.ExtractStaffRoles(message)
	if len(roles) == 0 {
		return update.Say("I didn't catch which staff you'd like. You can name them, or just say \"recommended\" to take our suggested team.")
	}

	update.SelectedStaffRoles = models.RolesPtr(roles)

	names := make([]string, 0, len(roles))
	for _, key := range roles {
		if role, ok := models.RoleByKey(key); ok {
			names = append(names, role.Name)
		}
	}

	return update.Say(fmt.Sprintf("Your team: %s.", strings.Join(names, ", ")))
}

func staffPrompt() string {
	var b strings.Builder

	b.WriteString("Time to pick your AI staff. Here's the catalog:\n")

	for _, role := range models.Catalog() {
		b.WriteString(fmt.Sprintf("- %s: %s", role.Name, role.Description))

		if role.Recommended {
			b.WriteString(" (recommended)")
		}

		b.WriteString("\n")
	}

	b.WriteString("Name the ones you want, or say \"recommended\" for our suggested team.")

	return b.String()
}

func (h *Handlers) setGoals(_ context.Context, state *models.WorkflowState, message string) *models.Update {
	update := &models.Update{}

	if message == "" {
		return update.Say("What are your top goals for the next few months? For example: book more appointments, collect more reviews, grow on social.")
	}

	goals := intent.ExtractGoals(message)
	if len(goals) == 0 {
		return update.Say("Tell me a bit more about what you'd like to achieve — a short list works great.")
	}

	update.Goals = models.GoalsPtr(goals)

	return update.Say(fmt.Sprintf("Got it — we'll focus on: %s.", strings.Join(goals, "; ")))
}

func (h *Handlers) generatePlan(ctx context.Context, state *models.WorkflowState, _ string) *models.Update {
	update := &models.Update{}

	plan, err := h.planGenerator.Generate(ctx, state.BrandProfile, state.SelectedStaffRoles, state.Goals, state.TenantID)
	if err == nil {
		err = models.ValidateBuildPlan(plan)
	}

	if err != nil {
		h.logger.WarnContext(ctx, "Plan generation failed",
			"thread_id", state.ThreadID, "error", err)

		return update.Fail(state.ErrorCount, err.Error(),
			"Something went wrong while drafting your plan. Let's revisit your goals — want to adjust anything, or keep them as they are?")
	}

	update.BuildPlan = models.RawPtr(plan)
	update.ApprovalStatus = models.ApprovalPtr(models.ApprovalPending)
	update.LastError = models.StringPtr("")

	return update.Say(fmt.Sprintf(
		"Here's your setup plan: %s\nReply \"approve\" to deploy it, or tell me what you'd like to change.",
		models.PlanSummary(plan)))
}

func (h *Handlers) awaitApproval(_ context.Context, state *models.WorkflowState, message string) *models.Update {
	update := &models.Update{}

	if message == "" {
		return update.Say("Whenever you're ready: reply \"approve\" to deploy the plan, or tell me what to change.")
	}

	decision, notes := intent.ExtractApproval(message)

	switch decision {
	case intent.DecisionApproved:
		update.ApprovalStatus = models.ApprovalPtr(models.ApprovalApproved)

		return update.Say("Approved! Deploying your setup now — this usually takes under a minute.")

	case intent.DecisionRejected:
		update.ApprovalStatus = models.ApprovalPtr(models.ApprovalRejected)
		update.ApprovalNotes = models.StringPtr(notes)

		// Re-arm the gate: the rerouted step regenerates everything downstream
		// of it, so the stale plan must not leak through.
		update.BuildPlan = models.RawPtr(nil)

		switch RejectionTarget(notes) {
		case models.StepCollectInfo:
			update.WebsiteURL = models.StringPtr("")
			update.BrandProfile = models.RawPtr(nil)

			return update.Say("Understood — let's revisit your business details.")
		case models.StepSetGoals:
			update.Goals = models.GoalsPtr(nil)

			return update.Say("Understood — let's rework your goals.")
		default:
			update.SelectedStaffRoles = models.RolesPtr(nil)

			return update.Say("Understood — let's adjust your team.")
		}

	default:
		return update.Say("No rush. Say \"approve\" when you're happy with the plan, or tell me what you'd like changed.")
	}
}

func (h *Handlers) deploy(ctx context.Context, state *models.WorkflowState, _ string) *models.Update {
	update := &models.Update{}

	credential, err := h.credentials.Get(ctx, state.TenantID)
	if err != nil {
		h.logger.WarnContext(ctx, "Credential lookup failed",
			"thread_id", state.ThreadID, "tenant_id", state.TenantID, "error", err)

		return update.Fail(state.ErrorCount, err.Error(),
			"I hit a snag preparing the deployment. Reply \"deploy\" to try again.")
	}

	if credential == "" {
		// Configuration problem, not a transient failure: no retry counting,
		// the session parks here until the tenant connects an account.
		update.LastError = models.StringPtr("")

		return update.Say("Your account isn't connected to a deployment target yet. " +
			"Connect it from your dashboard, then reply \"deploy\" and I'll pick up right here.")
	}

	result, err := h.deployer.Deploy(ctx, state.BuildPlan, state.TenantID, credential)
	if err != nil {
		h.logger.WarnContext(ctx, "Deployment failed",
			"thread_id", state.ThreadID, "tenant_id", state.TenantID, "error", err)

		return update.Fail(state.ErrorCount, err.Error(),
			"Deployment didn't go through. Reply \"deploy\" to try again.")
	}

	update.DeploymentResult = result
	update.LastError = models.StringPtr("")

	return update.Say("Deployment finished — verifying everything now.")
}

func (h *Handlers) verify(_ context.Context, state *models.WorkflowState, message string) *models.Update {
	update := &models.Update{}
	result := state.DeploymentResult

	if result == nil {
		return update.Say("Hold on — I don't see a deployment to verify yet.")
	}

	if result.Success {
		return update.Say("Everything checks out — your AI staff is live! " +
			"You can watch them work from your dashboard. Welcome aboard.")
	}

	lowered := strings.ToLower(message)

	switch {
	case strings.Contains(lowered, "retry"):
		return update.Say("Retrying the failed pieces now.")
	case strings.Contains(lowered, "continue"):
		return update.Say("Sounds good — everything that deployed successfully is live. " +
			"You can finish the remaining pieces from your dashboard anytime.")
	case strings.Contains(lowered, "support"):
		return update.Say("I've flagged this for our support team — they'll reach out shortly with everything they need already on file.")
	default:
		return update.Say(fmt.Sprintf(
			"Most of your setup deployed, but %d item(s) didn't make it. "+
				"Reply \"retry\" to try those again, \"continue\" to go live without them, or \"support\" to get a human involved.",
			len(result.Errors)))
	}
}

func (h *Handlers) errorHandler(ctx context.Context, state *models.WorkflowState, _ string) *models.Update {
	update := &models.Update{}

	if Terminate(state.ErrorCount) {
		h.logger.ErrorContext(ctx, "Session reached the failure ceiling",
			"thread_id", state.ThreadID, "error_count", state.ErrorCount)

		return update.Say("I'm sorry — I wasn't able to finish your setup automatically. " +
			"Our team has your progress saved and will take it from here.")
	}

	return update.Say("Sorry about the hiccups. Let's back up a step and try a different way.")
}
