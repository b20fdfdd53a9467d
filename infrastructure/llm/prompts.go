package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/team"
)

// Prompt bodies are lifted from the original system's
// _prompts-en.py (get_orchestrator_plan_prompt_json,
// get_orchestrator_plan_replan_json, get_orchestrator_progress_ledger_prompt,
// ORCHESTRATOR_FINAL_ANSWER_PROMPT) and rebuilt as Go string templates. The
// Protocol Layer is the only component allowed to format these.

const systemMessageTemplate = `You are the orchestrator of a team of specialized agents helping a user accomplish a task.
You can have the team browse the web, run code, inspect files, generate documents, and ask the user questions.
The date today is: %s`

// systemMessageTemplateZH is the zh variant, grounded on the original
// system's ORCHESTRATOR_SYSTEM_MESSAGE_EXECUTION in _prompts_zh.py.
const systemMessageTemplateZH = `你是一个AI助手，负责协调一个由多个专业智能体组成的团队来帮助用户完成任务。
你可以让团队浏览网页、运行代码、检查文件、生成文档，并向用户提问。
今天的日期是：%s`

func buildSystemMessage(dateToday, language string) string {
	template := systemMessageTemplate
	if language == "zh" {
		template = systemMessageTemplateZH
	}
	return fmt.Sprintf(template, dateToday)
}

const planPromptTemplate = `We are working to address the following user request:

%s

To answer this request we have assembled the following team:

%s

Before we begin, based on the team composition, and the task at hand, please answer the following questions. Think step by step.

- needs_plan: Does this task require a plan with multiple steps, or can it be answered directly? (true if a plan is needed, false if a direct response suffices)
- response: If no plan is needed, the direct response to give the user. Empty otherwise.
- plan_summary: A short summary of the plan, or empty if no plan is needed.
- steps: An ordered list of steps, each with a title, details, and agent_name naming the team member who should execute it.
%s

Please output an answer in pure JSON format according to the following schema. The JSON object must be parsable as-is. DO NOT OUTPUT ANYTHING OTHER THAN JSON, AND DO NOT DEVIATE FROM THIS SCHEMA:

{
    "task": "%s",
    "needs_plan": boolean,
    "response": "string, only set when needs_plan is false",
    "plan_summary": "string, only set when needs_plan is true",
    "steps": [
        {
            "title": "string",
            "details": "string",
            "agent_name": "string, one of: %s"%s
        }
    ]
}`

const sentinelStepFieldsNote = `
If a step should repeat on a cadence until a condition is satisfied rather than run once, mark it with "step_type": "sentinel", and provide "condition" (either an integer repeat count, or a natural-language condition to check) and "sleep_duration" (seconds between checks).`

const sentinelStepSchemaFields = `,
            "step_type": "string, \"normal\" (default) or \"sentinel\"",
            "condition": "string, required when step_type is sentinel",
            "sleep_duration": "integer seconds, required when step_type is sentinel"`

const replanIntroTemplate = `The task we are trying to complete is:

%s

The plan we have tried to complete is:

%s

We have not been able to make progress on our task. We need to find a new plan to tackle the task that addresses the failures in trying to complete it previously.

`

const ledgerPromptTemplate = `Recall we are working on the following request:

%s

This is our current plan:

%s

We are at step index %d in the plan which is:

Title: %s
Details: %s
agent_name: %s

And we have assembled the following team:

%s

To make progress on the request, please answer the following questions, including necessary reasoning where asked for it:

- is_current_step_complete: Is the current step complete?
- need_to_replan: Do we need a new plan? True if the user has sent new instructions the current plan can't address, or if we are stuck in a loop or facing significant barriers. Most of the time we don't need a new plan.
- instruction_or_question: Decide which team member should complete the current step (agent_name, one of: %s) and give complete instructions to accomplish it with all the context the agent needs (answer). If agent_name is %s, pose answer as a short direct question instead.
- progress_summary: Summarize how the task is going so far, in one or two sentences.

Please output an answer in pure JSON format according to the following schema. The JSON object must be parsable as-is. DO NOT OUTPUT ANYTHING OTHER THAN JSON, AND DO NOT DEVIATE FROM THIS SCHEMA:

{
    "is_current_step_complete": {"reason": "string", "answer": boolean},
    "need_to_replan": {"reason": "string", "answer": boolean},
    "instruction_or_question": {"answer": "string", "agent_name": "string, one of: %s"},
    "progress_summary": "string, a summary of progress so far in one or two sentences"
}`

const conditionPromptTemplate = `We are checking whether a sentinel plan step's condition has been satisfied.

Step: %s

Condition: %s

The agent's latest response was:

%s

Decide whether the condition is now satisfied, and suggest how long to wait before checking again.

Please output an answer in pure JSON format according to the following schema. The JSON object must be parsable as-is. DO NOT OUTPUT ANYTHING OTHER THAN JSON, AND DO NOT DEVIATE FROM THIS SCHEMA:

{
    "condition_met": boolean,
    "reason": "string",
    "sleep_duration_seconds": integer,
    "sleep_duration_reason": "string"
}`

const finalAnswerPromptTemplate = `We are working on the following task:

%s

The above messages contain the steps that took place to complete the task.

Based on the information gathered, provide a final response to the user in response to the task.

Make sure the user can easily verify your answer, and refer to the steps of the plan that was used to complete it.

There is no need to be verbose, but make sure it contains enough information for the user.`

// finalAnswerPromptTemplateZH is the zh language variant (spec's
// language ∈ {en, zh}), grounded on the original system's
// ORCHESTRATOR_FINAL_ANSWER_PROMPT in _prompts_zh.py.
const finalAnswerPromptTemplateZH = `我们正在处理以下任务：

%s

以上消息包含为完成该任务而采取的步骤。

基于收集到的信息，请为该任务生成一个最终回复发给用户。

确保用户可以轻松验证你的答案，请遵循计划的步骤来完成此任务。

无需赘述，但请确保提供足够的信息供用户理解。`

func formatTeam(t team.Team) string {
	var sb strings.Builder
	for _, m := range t.Members {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", m.Name, m.Description))
	}
	return sb.String()
}

func teamNames(t team.Team) string {
	names := make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}

func buildPlanPrompt(task string, t team.Team, sentinelEnabled bool, language string, hints, allowedWebsites []string) string {
	note := ""
	schemaFields := ""
	if sentinelEnabled {
		note = sentinelStepFieldsNote
		schemaFields = sentinelStepSchemaFields
	}
	system := buildSystemMessage(time.Now().Format("2006-01-02"), language)
	body := fmt.Sprintf(planPromptTemplate, task, formatTeam(t), note, task, teamNames(t), schemaFields)
	if len(hints) > 0 {
		body = buildPlanHintsSection(hints) + body
	}
	if len(allowedWebsites) > 0 {
		body = buildAllowedWebsitesNote(allowedWebsites) + body
	}
	return system + "\n\n" + body
}

// buildAllowedWebsitesNote renders spec's allowed_websites as a planning
// constraint: any step that browses the web must stay within this list.
func buildAllowedWebsitesNote(sites []string) string {
	var sb strings.Builder
	sb.WriteString("Any step that browses the web is restricted to the following sites: ")
	sb.WriteString(strings.Join(sites, ", "))
	sb.WriteString(". Do not plan steps that require visiting other sites.\n\n")
	return sb.String()
}

// buildPlanHintsSection renders memory-provider plan suggestions as
// prior-plan hints (spec's retrieve_relevant_plans="hint": "pass prior
// plans into the prompt").
func buildPlanHintsSection(hints []string) string {
	var sb strings.Builder
	sb.WriteString("A memory provider suggests the following prior plans may be relevant to this task. Use them as inspiration, not as instructions to follow verbatim:\n\n")
	for _, h := range hints {
		sb.WriteString("- ")
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func buildReplanPrompt(task string, prior plan.Plan, t team.Team, sentinelEnabled bool, language string, allowedWebsites []string) string {
	intro := fmt.Sprintf(replanIntroTemplate, task, prior.Summary)
	return intro + buildPlanPrompt(task, t, sentinelEnabled, language, nil, allowedWebsites)
}

func buildLedgerPrompt(task string, p plan.Plan, stepIndex int, t team.Team) string {
	step, _ := p.StepAt(stepIndex)
	return fmt.Sprintf(ledgerPromptTemplate,
		task, p.Summary, stepIndex, step.Title, step.Details, step.AgentName,
		formatTeam(t), teamNames(t), team.UserProxyName, teamNames(t))
}

func buildConditionPrompt(stepDescription, conditionText, agentResponse string) string {
	return fmt.Sprintf(conditionPromptTemplate, stepDescription, conditionText, agentResponse)
}

func buildFinalAnswerPrompt(task, override, language string) string {
	template := finalAnswerPromptTemplate
	if language == "zh" {
		template = finalAnswerPromptTemplateZH
	}
	if override != "" {
		template = override
	}
	return fmt.Sprintf(template, task)
}
