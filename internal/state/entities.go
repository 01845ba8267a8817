package state

// Priority and severity scales used by extracted records.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"

	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// ActionItem is an actionable request extracted from the input message.
type ActionItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Owner    string `json:"owner,omitempty"`
	Priority string `json:"priority"`
	DueDate  string `json:"due_date,omitempty"`
	Status   string `json:"status"`
}

// Risk is a potential problem extracted from the input message.
type Risk struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Severity   string `json:"severity"`
	Mitigation string `json:"mitigation_strategy,omitempty"`
	Owner      string `json:"owner,omitempty"`
}

// Decision records a decision synthesized from the message content.
type Decision struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Impact    string `json:"impact,omitempty"`
}

// QnARecord is a generated stakeholder question/answer pair.
type QnARecord struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}
