// Package classify assigns AI news items to a category and decides whether
// an item from a general outlet is about AI at all.
package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Category represents an item classification.
type Category string

const (
	ModelResearch    Category = "model_research"
	ProductTools     Category = "product_tools"
	IndustryBusiness Category = "industry_business"
)

// Fallback is returned when no keyword matches.
const Fallback = IndustryBusiness

// AllCategories returns all valid categories in canonical order. Ties are
// won by the earlier category.
func AllCategories() []Category {
	return []Category{ModelResearch, ProductTools, IndustryBusiness}
}

var categoryKeywords = map[Category][]string{
	ModelResearch: {
		"paper", "study", "research", "researchers", "benchmark", "sota",
		"architecture", "algorithm", "method", "dataset", "evaluation", "survey",
		"preprint", "arxiv", "findings", "scaling law", "state of the art",
		"논문", "연구", "발견", "벤치마크",
	},
	ProductTools: {
		"release", "releases", "released", "launch", "launches", "launched",
		"open-source", "open source", "api", "sdk", "framework", "app", "tool",
		"update", "feature", "download", "available", "weights", "pricing",
		"model", "agent", "plugin", "beta", "preview",
		"출시", "공개", "업데이트", "신기능", "오픈소스", "릴리스",
	},
	IndustryBusiness: {
		"funding", "raises", "raised", "investment", "investor", "acquisition",
		"acquires", "merger", "revenue", "earnings", "ipo", "valuation",
		"regulation", "antitrust", "lawsuit", "partnership", "layoffs", "ceo",
		"market", "startup", "deal", "policy", "government",
		"투자", "인수", "실적", "규제", "제휴", "시장", "기업가치",
	},
}

// FocusAliases maps short CLI flags to categories.
var FocusAliases = map[string]Category{
	"research": ModelResearch,
	"models":   ProductTools,
	"products": ProductTools,
	"tools":    ProductTools,
	"industry": IndustryBusiness,
	"business": IndustryBusiness,
}

// ResolveAlias maps a CLI alias to a Category.
func ResolveAlias(alias string) (Category, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if cat, ok := FocusAliases[alias]; ok {
		return cat, nil
	}
	// Also accept full category names (case-insensitive)
	for _, cat := range AllCategories() {
		if strings.EqualFold(string(cat), alias) {
			return cat, nil
		}
	}
	valid := make([]string, 0, len(FocusAliases))
	for k := range FocusAliases {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown category %q (valid: %s)", alias, strings.Join(valid, ", "))
}

// Classify determines the category for an item based on title and description.
// Title keywords are weighted 2x. Returns Fallback when nothing matches.
func Classify(title, description string) Category {
	titleTokens := tokenize(title)
	descTokens := tokenize(description)
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	var bestCat Category
	bestScore := 0

	for _, cat := range AllCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(kw, " ") || !isASCII(kw) {
				// Phrases and Hangul keywords match as substrings, since
				// Korean attaches particles to nouns.
				if strings.Contains(titleLower, kw) {
					score += 2
				}
				if strings.Contains(descLower, kw) {
					score++
				}
				continue
			}
			for _, t := range titleTokens {
				if t == kw {
					score += 2
				}
			}
			for _, t := range descTokens {
				if t == kw {
					score++
				}
			}
		}
		// Strictly greater keeps the earlier category on ties.
		if score > bestScore {
			bestScore = score
			bestCat = cat
		}
	}

	if bestScore == 0 {
		return Fallback
	}
	return bestCat
}

var (
	boundaryKeywords = regexp.MustCompile(`\b(ai|llm|llms|gpt|nlp|rag|gpu|gpus|tpu)\b`)
	plainKeywords    = []string{
		"artificial intelligence", "machine learning", "deep learning",
		"chatgpt", "claude", "gemini", "neural", "transformer",
		"agentic", "multimodal", "generative", "diffusion",
		"natural language", "computer vision", "robotics", "autonomous",
		"chatbot", "foundation model", "large language model",
		"openai", "anthropic", "deepmind", "hugging face", "huggingface",
		"midjourney", "stable diffusion", "copilot", "sora", "dall-e",
		"nvidia", "tensor", "fine-tun", "embedding",
		"reinforcement learning", "supervised learning", "unsupervised",
		"prompt engineer", "synthetic data",
		"인공지능", "머신러닝", "딥러닝", "생성형", "언어모델", "챗봇",
		"파인튜닝", "임베딩", "프롬프트", "신경망", "자율주행",
		"컴퓨터 비전", "자연어 처리", "강화학습", "초거대",
	}
)

// IsAIRelated reports whether the text mentions AI. Short acronyms match on
// word boundaries so "said" does not count as "ai".
func IsAIRelated(title, description string) bool {
	text := strings.ToLower(title + " " + description)
	if boundaryKeywords.MatchString(text) {
		return true
	}
	for _, kw := range plainKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
