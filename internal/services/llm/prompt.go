package llm

import (
	"fmt"
	"strings"

	"github.com/liuyingduo/stock-news/internal/models"
)

// maxPromptContent bounds the content excerpt embedded in the prompt.
const maxPromptContent = 3000

const analysisPromptTemplate = `你是一位A股市场分析师。请分析下面的事件并输出严格的JSON。

事件标题: %s
事件内容: %s

分类约束:
- event_category 必须是以下之一: %s
- event_types 必须是以下值组成的数组(可多选): %s

请输出且只输出如下结构的JSON:
{
  "event_category": "...",
  "event_types": ["..."],
  "impact_score": 0.0,
  "sentiment_score": 0.0,
  "confidence_score": 0.5,
  "is_hype": false,
  "impact_reason": "一句话说明影响逻辑",
  "affected_sectors": [{"name": "...", "code": "...", "reason": "..."}],
  "affected_stocks": [{"name": "...", "code": "...", "reason": "..."}],
  "key_materials": [{"name": "...", "trend": "up|down|stable"}]
}

数值范围: impact_score ∈ [0,1], sentiment_score ∈ [-1,1], confidence_score ∈ [0,1]。
不要输出JSON以外的任何文字。`

const classifyPromptTemplate = `请将下面的财经快讯分类，输出严格的JSON。

标题: %s
内容: %s

event_category 必须是以下之一: %s
event_types 必须是以下值组成的数组: %s

只输出: {"event_category": "...", "event_types": ["..."]}`

func categoryVocabulary() string {
	cats := models.ValidCategories()
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func typeVocabulary() string {
	types := models.ValidTypes()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// truncateRunes cuts on rune boundaries so multi-byte text never splits.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// buildAnalysisPrompt embeds the event and the full closed vocabulary.
func buildAnalysisPrompt(title, content string) string {
	if content == "" {
		content = title
	}
	content = truncateRunes(content, maxPromptContent)
	return fmt.Sprintf(analysisPromptTemplate, title, content, categoryVocabulary(), typeVocabulary())
}

// buildClassifyPrompt asks for category/types only.
func buildClassifyPrompt(title, content string) string {
	if content == "" {
		content = title
	}
	content = truncateRunes(content, maxPromptContent)
	return fmt.Sprintf(classifyPromptTemplate, title, content, categoryVocabulary(), typeVocabulary())
}
