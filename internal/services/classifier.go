package services

import (
	"regexp"
	"strings"
	"sync"
)

// Category labels a transaction can be classified into
const (
	CategoryFood           = "food"
	CategoryShopping       = "shopping"
	CategoryTransportation = "transportation"
	CategoryEntertainment  = "entertainment"
	CategoryBills          = "bills"
	CategoryOther          = "other"
)

// CandidateLabels lists every label the classifier can return
var CandidateLabels = []string{
	CategoryFood,
	CategoryShopping,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryBills,
	CategoryOther,
}

// MatchType controls how a rule keyword is compared to a title
type MatchType string

const (
	MatchSubstring MatchType = "substring"
	MatchExact     MatchType = "exact"
	MatchRegex     MatchType = "regex"
	MatchFuzzy     MatchType = "fuzzy"
)

// Rule represents a classification rule
type Rule struct {
	Keyword             string    `json:"keyword"`
	Category            string    `json:"category"`
	Priority            int       `json:"priority"`
	MatchType           MatchType `json:"match_type"`
	SimilarityThreshold float64   `json:"similarity_threshold,omitempty"` // For fuzzy matching (0-1)
}

// Classifier maps a free-text title (merchant, receipt name) to a category label
type Classifier struct {
	rules   []Rule
	regexes map[string]*regexp.Regexp
}

var (
	defaultClassifier     *Classifier
	defaultClassifierOnce sync.Once
)

// DefaultClassifier returns the process-wide classifier built from DefaultRules.
// It is built on first use and shared afterwards.
func DefaultClassifier() *Classifier {
	defaultClassifierOnce.Do(func() {
		defaultClassifier = NewClassifier(DefaultRules())
	})
	return defaultClassifier
}

// NewClassifier creates a classifier from rules. Regex rules that do not compile are dropped.
func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{
		rules:   make([]Rule, 0, len(rules)),
		regexes: make(map[string]*regexp.Regexp),
	}

	for _, r := range rules {
		if r.MatchType == MatchRegex {
			re, err := regexp.Compile(r.Keyword)
			if err != nil {
				continue
			}
			c.regexes[r.Keyword] = re
		}
		c.rules = append(c.rules, r)
	}

	return c
}

// Rules returns a copy of the active rules
func (c *Classifier) Rules() []Rule {
	rules := make([]Rule, len(c.rules))
	copy(rules, c.rules)
	return rules
}

// Classify returns the best matching label for text, or "other" when nothing matches
func (c *Classifier) Classify(text string) string {
	if strings.TrimSpace(text) == "" {
		return CategoryOther
	}
	if category := c.matchDescription(text, c.rules); category != "" {
		return category
	}
	return CategoryOther
}

// matchDescription finds the best matching rule for a description
func (c *Classifier) matchDescription(description string, rules []Rule) string {
	descUpper := strings.ToUpper(strings.TrimSpace(description))
	descLower := strings.ToLower(descUpper)

	var bestMatch string
	highestPriority := -1
	highestScore := 0.0

	for _, rule := range rules {
		var matched bool
		var score float64

		// Regex rules are written against upper case titles, everything else lower case
		if rule.MatchType == MatchRegex {
			matched, score = c.matchRule(descUpper, rule)
		} else {
			matched, score = c.matchRule(descLower, rule)
		}

		if !matched {
			continue
		}

		// Higher priority wins, then higher score
		if rule.Priority > highestPriority {
			bestMatch = rule.Category
			highestPriority = rule.Priority
			highestScore = score
		} else if rule.Priority == highestPriority && score > highestScore {
			bestMatch = rule.Category
			highestScore = score
		}
	}

	return bestMatch
}

// matchRule checks if a description matches a rule based on its match type
func (c *Classifier) matchRule(description string, rule Rule) (bool, float64) {
	switch rule.MatchType {
	case MatchExact:
		return c.matchExact(description, strings.ToLower(rule.Keyword))
	case MatchRegex:
		return c.matchRegex(description, rule.Keyword)
	case MatchFuzzy:
		return c.matchFuzzy(description, strings.ToLower(rule.Keyword), rule.SimilarityThreshold)
	default:
		return c.matchSubstring(description, strings.ToLower(rule.Keyword))
	}
}

// matchExact performs exact string matching
func (c *Classifier) matchExact(description, keyword string) (bool, float64) {
	if description == keyword {
		return true, 1.0
	}
	return false, 0.0
}

// matchSubstring scores a match by how much of the description the keyword covers
func (c *Classifier) matchSubstring(description, keyword string) (bool, float64) {
	if keyword != "" && strings.Contains(description, keyword) {
		return true, float64(len(keyword)) / float64(len(description))
	}
	return false, 0.0
}

// matchRegex uses the compiled pattern when the classifier has one
func (c *Classifier) matchRegex(description, pattern string) (bool, float64) {
	re, ok := c.regexes[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, 0.0
		}
	}

	if re.MatchString(description) {
		return true, 0.8
	}
	return false, 0.0
}

// matchFuzzy performs fuzzy string matching using Levenshtein distance
func (c *Classifier) matchFuzzy(description, keyword string, threshold float64) (bool, float64) {
	// Fast path
	if strings.Contains(description, keyword) {
		return true, 1.0
	}

	similarity := c.calculateSimilarity(description, keyword)
	if similarity >= threshold {
		return true, similarity
	}

	maxSimilarity := 0.0
	for _, word := range strings.Fields(description) {
		wordSimilarity := c.calculateSimilarity(word, keyword)
		if wordSimilarity > maxSimilarity {
			maxSimilarity = wordSimilarity
		}
		if wordSimilarity >= threshold {
			return true, wordSimilarity
		}
	}

	return false, maxSimilarity
}

// calculateSimilarity returns 1 - distance/maxLen, so 1 is identical
func (c *Classifier) calculateSimilarity(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	distance := c.levenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))

	return 1.0 - (float64(distance) / float64(maxLen))
}

// levenshteinDistance calculates the Levenshtein distance between two strings
func (c *Classifier) levenshteinDistance(s1, s2 string) int {
	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// DefaultRules is the built-in rule set for common merchants
func DefaultRules() []Rule {
	rules := []Rule{
		// Food delivery inside ride apps beats the ride rule
		{Keyword: "uber eats", Category: CategoryFood, Priority: 8, MatchType: MatchSubstring},

		// Short words need word boundaries
		{Keyword: `\b(OLA|BUS|CAB|TAXI|METRO)\b`, Category: CategoryTransportation, Priority: 5, MatchType: MatchRegex},
		{Keyword: `\bRENT\b`, Category: CategoryBills, Priority: 5, MatchType: MatchRegex},
		{Keyword: `\bKFC\b`, Category: CategoryFood, Priority: 5, MatchType: MatchRegex},
		{Keyword: `\bPVR\b`, Category: CategoryEntertainment, Priority: 5, MatchType: MatchRegex},
		{Keyword: `\bEMI\b`, Category: CategoryBills, Priority: 5, MatchType: MatchRegex},
		{Keyword: `\bBILLS?\b`, Category: CategoryBills, Priority: 3, MatchType: MatchRegex},

		{Keyword: "starbucks", Category: CategoryFood, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "zomato", Category: CategoryFood, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "swiggy", Category: CategoryFood, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "flipkart", Category: CategoryShopping, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "netflix", Category: CategoryEntertainment, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
		{Keyword: "spotify", Category: CategoryEntertainment, Priority: 5, MatchType: MatchFuzzy, SimilarityThreshold: 0.75},
	}

	substrings := map[string][]string{
		CategoryFood: {
			"mcdonald", "domino", "pizza", "burger", "cafe", "coffee", "restaurant",
			"bakery", "grocery", "groceries", "dining", "lunch", "dinner", "breakfast", "food",
		},
		CategoryShopping: {
			"amazon", "myntra", "ajio", "mall", "ikea", "walmart", "zara", "clothing",
			"shoes", "electronics", "store", "shopping",
		},
		CategoryTransportation: {
			"uber", "rapido", "fuel", "petrol", "diesel", "parking", "irctc", "train",
			"flight", "airline", "toll",
		},
		CategoryEntertainment: {
			"hotstar", "prime video", "youtube premium", "cinema", "inox", "movie",
			"bookmyshow", "concert", "steam", "gaming",
		},
		CategoryBills: {
			"electricity", "water bill", "broadband", "internet", "wifi", "airtel", "jio",
			"vodafone", "insurance", "recharge", "gas bill", "utility",
		},
	}

	// Fixed label order keeps the rule list deterministic
	for _, category := range CandidateLabels {
		for _, keyword := range substrings[category] {
			rules = append(rules, Rule{
				Keyword:   keyword,
				Category:  category,
				Priority:  5,
				MatchType: MatchSubstring,
			})
		}
	}

	return rules
}
