// Package extract holds the structured-generation operations: turning an
// input message plus project knowledge into action items, risks, and
// stakeholder Q&A records via the LLM client.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	nionerrors "nion/internal/errors"
	"nion/internal/llm"
	"nion/internal/logging"
	"nion/internal/state"
)

// Operation identities used for retry reporting.
const (
	OpExtractActionItems = "extract_action_items"
	OpExtractRisks       = "extract_risks"
	OpGenerateQnA        = "generate_qna"
)

const actionItemsSystemPrompt = `You are a project tracking assistant. Extract actionable items from the message.
Respond with a single JSON object containing 'action_items' (array of objects with
id, title, owner, priority, due_date) and 'extraction_confidence' (float 0-1).
Only include items explicitly requested or clearly implied by the message.`

const risksSystemPrompt = `You are a project risk analyst. Identify risks implied by the message.
Respond with a single JSON object containing 'risks' (array of objects with
id, title, severity, mitigation_strategy) and 'extraction_confidence' (float 0-1).
Severity is one of CRITICAL, HIGH, MEDIUM, LOW.`

const qnaSystemPrompt = `You are a stakeholder communication assistant. Anticipate the questions
stakeholders will ask about this message and answer them from the project context.
Respond with a single JSON object containing 'qna_records' (array of objects with
question, answer, confidence) and 'generation_confidence' (float 0-1).`

// ActionItemResult is the outcome of one action-item extraction.
type ActionItemResult struct {
	Items      []state.ActionItem
	Confidence float64
}

// RiskResult is the outcome of one risk extraction.
type RiskResult struct {
	Risks      []state.Risk
	Confidence float64
}

// QnAResult is the outcome of one Q&A generation.
type QnAResult struct {
	Records    []state.QnARecord
	Confidence float64
}

// Extractor runs the structured-generation operations. Each operation has its
// own retry-wrapped client so exhaustion errors name the operation that
// failed.
type Extractor struct {
	actionClient llm.Client
	riskClient   llm.Client
	qnaClient    llm.Client
	logger       logging.Logger
}

// NewExtractor wraps the shared generation client once per operation.
func NewExtractor(client llm.Client, retry nionerrors.RetryConfig) *Extractor {
	return &Extractor{
		actionClient: llm.WithRetry(client, OpExtractActionItems, retry),
		riskClient:   llm.WithRetry(client, OpExtractRisks, retry),
		qnaClient:    llm.WithRetry(client, OpGenerateQnA, retry),
		logger:       logging.NewComponentLogger("extract"),
	}
}

// buildUserPrompt renders the message and its project context for the model.
func buildUserPrompt(input state.InputMessage, knowledgeContext map[string]any) string {
	contextJSON, err := json.MarshalIndent(knowledgeContext, "", "  ")
	if err != nil {
		contextJSON = []byte("{}")
	}
	return fmt.Sprintf("Project context:\n%s\n\nMessage from %s:\n%s", contextJSON, input.Sender, input.Message)
}

type actionItemsPayload struct {
	ActionItems []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Owner    string `json:"owner"`
		Priority string `json:"priority"`
		DueDate  string `json:"due_date"`
	} `json:"action_items"`
	Confidence *float64 `json:"extraction_confidence"`
}

// ActionItems extracts action items from the message. A transport or retry
// failure is returned as an error; an unparseable response degrades to an
// empty result with zero confidence.
func (e *Extractor) ActionItems(ctx context.Context, input state.InputMessage, knowledgeContext map[string]any) (ActionItemResult, error) {
	raw, err := e.actionClient.Generate(ctx, actionItemsSystemPrompt, buildUserPrompt(input, knowledgeContext))
	if err != nil {
		return ActionItemResult{}, err
	}

	var payload actionItemsPayload
	if err := Decode(raw, &payload); err != nil {
		e.logger.Warn("%s: discarding unparseable response: %v", OpExtractActionItems, err)
		return ActionItemResult{}, nil
	}

	result := ActionItemResult{Confidence: confidenceOrDefault(payload.Confidence)}
	for i, rec := range payload.ActionItems {
		if rec.Title == "" {
			e.logger.Warn("%s: dropping record %d with no title", OpExtractActionItems, i)
			continue
		}
		item := state.ActionItem{
			ID:       rec.ID,
			Title:    rec.Title,
			Owner:    rec.Owner,
			Priority: rec.Priority,
			DueDate:  rec.DueDate,
			Status:   "OPEN",
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("ACT-%d", 1000+len(result.Items)+1)
		}
		if item.Priority == "" {
			item.Priority = state.PriorityMedium
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

type risksPayload struct {
	Risks []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Severity   string `json:"severity"`
		Mitigation string `json:"mitigation_strategy"`
		Owner      string `json:"owner"`
	} `json:"risks"`
	Confidence *float64 `json:"extraction_confidence"`
}

// Risks extracts risks from the message.
func (e *Extractor) Risks(ctx context.Context, input state.InputMessage, knowledgeContext map[string]any) (RiskResult, error) {
	raw, err := e.riskClient.Generate(ctx, risksSystemPrompt, buildUserPrompt(input, knowledgeContext))
	if err != nil {
		return RiskResult{}, err
	}

	var payload risksPayload
	if err := Decode(raw, &payload); err != nil {
		e.logger.Warn("%s: discarding unparseable response: %v", OpExtractRisks, err)
		return RiskResult{}, nil
	}

	result := RiskResult{Confidence: confidenceOrDefault(payload.Confidence)}
	for i, rec := range payload.Risks {
		if rec.Title == "" {
			e.logger.Warn("%s: dropping record %d with no title", OpExtractRisks, i)
			continue
		}
		risk := state.Risk{
			ID:         rec.ID,
			Title:      rec.Title,
			Severity:   rec.Severity,
			Mitigation: rec.Mitigation,
			Owner:      rec.Owner,
		}
		if risk.ID == "" {
			risk.ID = fmt.Sprintf("RSK-%d", 1000+len(result.Risks)+1)
		}
		if risk.Severity == "" {
			risk.Severity = state.SeverityMedium
		}
		result.Risks = append(result.Risks, risk)
	}
	return result, nil
}

type qnaPayload struct {
	QnARecords []struct {
		Question   string   `json:"question"`
		Answer     string   `json:"answer"`
		Confidence *float64 `json:"confidence"`
	} `json:"qna_records"`
	Confidence *float64 `json:"generation_confidence"`
}

// QnA generates stakeholder question/answer pairs for the message.
func (e *Extractor) QnA(ctx context.Context, input state.InputMessage, knowledgeContext map[string]any) (QnAResult, error) {
	raw, err := e.qnaClient.Generate(ctx, qnaSystemPrompt, buildUserPrompt(input, knowledgeContext))
	if err != nil {
		return QnAResult{}, err
	}

	var payload qnaPayload
	if err := Decode(raw, &payload); err != nil {
		e.logger.Warn("%s: discarding unparseable response: %v", OpGenerateQnA, err)
		return QnAResult{}, nil
	}

	result := QnAResult{Confidence: confidenceOrDefault(payload.Confidence)}
	for i, rec := range payload.QnARecords {
		if rec.Question == "" {
			e.logger.Warn("%s: dropping record %d with no question", OpGenerateQnA, i)
			continue
		}
		record := state.QnARecord{
			Question:   rec.Question,
			Answer:     rec.Answer,
			Confidence: 0.9,
		}
		if rec.Confidence != nil {
			record.Confidence = *rec.Confidence
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

// confidenceOrDefault applies the schema default when the model omitted the
// confidence field.
func confidenceOrDefault(c *float64) float64 {
	if c == nil {
		return 0.85
	}
	return *c
}
