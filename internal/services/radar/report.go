package radar

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderMarkdown builds the radar report as markdown.
func RenderMarkdown(overview Overview, opportunities, risks []EventCard) string {
	var b strings.Builder

	b.WriteString("# 市场机会雷达\n\n")
	fmt.Fprintf(&b, "生成时间: %s\n\n", overview.UpdatedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## 市场概览\n\n")
	fmt.Fprintf(&b, "| 指标 | 值 |\n|---|---|\n")
	fmt.Fprintf(&b, "| 统计窗口 | %d 小时 |\n", overview.WindowHours)
	fmt.Fprintf(&b, "| 样本数 | %d |\n", overview.SampleSize)
	fmt.Fprintf(&b, "| 市场指数 | %.2f |\n", overview.MarketIndex)
	fmt.Fprintf(&b, "| 平均置信度 | %.2f |\n", overview.AvgConfidence)
	fmt.Fprintf(&b, "| 机会 / 风险 / 中性 | %d / %d / %d |\n\n",
		overview.OpportunityCount, overview.RiskCount, overview.NeutralCount)

	writeSignalSection(&b, "## 机会信号", opportunities)
	writeSignalSection(&b, "## 风险信号", risks)

	return b.String()
}

func writeSignalSection(b *strings.Builder, heading string, cards []EventCard) {
	b.WriteString(heading + "\n\n")
	if len(cards) == 0 {
		b.WriteString("暂无信号。\n\n")
		return
	}

	b.WriteString("| 事件 | 情绪 | 相关度 | 来源 |\n|---|---|---|---|\n")
	for _, c := range cards {
		title := c.Event.Title
		if c.Event.OriginalURL != "" {
			title = fmt.Sprintf("[%s](%s)", c.Event.Title, c.Event.OriginalURL)
		}
		fmt.Fprintf(b, "| %s | %.2f | %.2f | %s |\n",
			title, c.Card.Sentiment, c.Card.Relevance, c.Event.Source)
	}
	b.WriteString("\n")
}

// RenderHTML converts the markdown report to a standalone HTML document.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("failed to render report HTML: %w", err)
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString("<title>市场机会雷达</title>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")

	return doc.String(), nil
}
