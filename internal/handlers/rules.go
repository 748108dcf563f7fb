package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// RuleSet is a classifier that can list its rules
type RuleSet interface {
	Categorizer
	Rules() []services.Rule
}

// RulesHandler exposes the classification rules
type RulesHandler struct {
	classifier RuleSet
}

// NewRulesHandler creates a new rules handler instance
func NewRulesHandler(classifier RuleSet) *RulesHandler {
	return &RulesHandler{classifier: classifier}
}

// ClassifyRequest represents the request body for Classify
type ClassifyRequest struct {
	Title string `json:"title"`
}

// GetRules returns the active rules, optionally filtered by category
// GET /api/classifier/rules?category=food
func (h *RulesHandler) GetRules(c fiber.Ctx) error {
	category := strings.ToLower(strings.TrimSpace(c.Query("category")))

	rules := h.classifier.Rules()
	if category != "" {
		filtered := rules[:0]
		for _, r := range rules {
			if r.Category == category {
				filtered = append(filtered, r)
			}
		}
		rules = filtered
	}

	return c.JSON(fiber.Map{
		"rules":  rules,
		"count":  len(rules),
		"labels": services.CandidateLabels,
	})
}

// SearchRules searches for rules by keyword
// GET /api/classifier/rules/search?q=keyword&limit=10
func (h *RulesHandler) SearchRules(c fiber.Ctx) error {
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if query == "" {
		return utils.NewBadRequestError("search query (q) is required", nil)
	}

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit", "20")); err == nil && l > 0 {
		limit = l
	}
	if limit > 100 {
		limit = 100 // Max limit
	}

	matches := make([]services.Rule, 0)
	for _, r := range h.classifier.Rules() {
		if strings.Contains(strings.ToLower(r.Keyword), query) {
			matches = append(matches, r)
			if len(matches) == limit {
				break
			}
		}
	}

	return c.JSON(fiber.Map{
		"rules": matches,
		"query": query,
	})
}

// Classify returns the category for a title
// POST /api/classifier/classify
func (h *RulesHandler) Classify(c fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.NewBadRequestError("title is required", nil)
	}

	return utils.SuccessFields(c, fiber.StatusOK, fiber.Map{
		"title":    req.Title,
		"category": h.classifier.Classify(req.Title),
	})
}
