// Package knowledge is the read-only project knowledge lookup. The backing
// data is an in-process knowledge base; lookups are pure per project id and
// therefore run through the tiered cache.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"nion/internal/cache"
	"nion/internal/logging"
)

// OpRetrieveKnowledge is the cache operation identity for project lookups.
const OpRetrieveKnowledge = "retrieve_knowledge"

// DefaultTTL is how long a retrieved knowledge record stays cached.
const DefaultTTL = 60 * time.Second

// knowledgeBase holds the seeded project records.
var knowledgeBase = map[string]map[string]any{
	"PRJ-ALPHA": {
		"project_name":       "Project Alpha - Real-time Customer Platform",
		"team_members":       []any{"Sarah Chen (Product Manager)", "John Doe (Lead Engineer)", "Alice Smith (QA)"},
		"budget":             150000,
		"timeline":           "Q1-Q2 2025",
		"current_features":   []any{"user_authentication", "dashboard", "analytics_reporting"},
		"tech_stack":         []any{"Python", "React", "PostgreSQL", "Redis"},
		"recent_updates":     "Customer demo scheduled for Q4 2024. Positive feedback expected.",
		"constraints":        "Real-time features require WebSocket infrastructure and Redis caching.",
		"precedents":         "Similar feature (push_notifications) added in PRJ-BETA with 18% cost increase and 6-week timeline.",
		"stakeholders":       []any{"Executive Team", "Engineering Team", "Customer Success"},
		"risk_threshold":     "HIGH",
		"approval_authority": "VP Product & Finance",
	},
	"PRJ-BETA": {
		"project_name":       "Project Beta - Enterprise Analytics",
		"team_members":       []any{"Tom Wilson", "Emma Davis"},
		"budget":             200000,
		"timeline":           "Q2-Q3 2025",
		"current_features":   []any{"data_ingestion", "reporting", "notifications"},
		"tech_stack":         []any{"Java", "Kafka", "Elasticsearch"},
		"recent_updates":     "Phase 2 in progress.",
		"constraints":        "Latency SLA: <100ms for queries",
		"precedents":         nil,
		"stakeholders":       []any{"CTO", "Finance"},
		"risk_threshold":     "MEDIUM",
		"approval_authority": "CTO",
	},
}

// Service resolves project knowledge records through the tiered cache.
type Service struct {
	cache  *cache.Tiered
	ttl    time.Duration
	logger logging.Logger
}

// NewService creates a lookup service. ttl <= 0 selects DefaultTTL.
func NewService(tiered *cache.Tiered, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		cache:  tiered,
		ttl:    ttl,
		logger: logging.NewComponentLogger("knowledge"),
	}
}

// Lookup returns the knowledge record for projectID. An unknown project
// yields an error record naming the available projects rather than an error;
// only serialization problems can fail the call.
func (s *Service) Lookup(ctx context.Context, projectID string) (map[string]any, error) {
	key := cache.Key(OpRetrieveKnowledge, projectID)

	encoded, err := s.cache.GetOrCompute(ctx, key, s.ttl, func(context.Context) (string, error) {
		record := s.resolve(projectID)
		data, err := json.Marshal(record)
		if err != nil {
			return "", fmt.Errorf("encode knowledge record: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(encoded), &record); err != nil {
		return nil, fmt.Errorf("decode knowledge record: %w", err)
	}
	return record, nil
}

func (s *Service) resolve(projectID string) map[string]any {
	if record, ok := knowledgeBase[projectID]; ok {
		return record
	}

	s.logger.Warn("project %s not found in knowledge base", projectID)
	available := slices.Sorted(maps.Keys(knowledgeBase))
	return map[string]any{
		"error":              fmt.Sprintf("Project %s not found", projectID),
		"available_projects": available,
	}
}
