package classify

import (
	"strings"

	"github.com/liuyingduo/stock-news/internal/models"
)

// titleRules classify a notice by keywords in its title when no usable type
// label exists (per-security news, telegraph items). First match wins.
var titleRules = []struct {
	keywords []string
	typ      models.EventType
}{
	{[]string{"诉讼", "仲裁"}, models.TypeLitigation},
	{[]string{"股权转让", "股份划转"}, models.TypeHolderChange},
	{[]string{"回购"}, models.TypeBuyback},
	{[]string{"年度报告", "年报", "季度报告", "季报"}, models.TypeFinPerf},
	{[]string{"业绩预告", "业绩快报"}, models.TypeFinPerf},
	{[]string{"分红", "送转", "利润分配"}, models.TypeCapitalAction},
	{[]string{"并购", "重组", "资产重组"}, models.TypeMergerRe},
	{[]string{"定增", "非公开发行", "配股"}, models.TypeCapitalAction},
	{[]string{"辞职", "聘任", "任命"}, models.TypeInfoChange},
	{[]string{"立案", "调查", "处罚", "问询"}, models.TypeRegulatory},
	{[]string{"获批", "审批", "核准"}, models.TypeRegulatory},
	{[]string{"减持", "增持"}, models.TypeHolderChange},
	{[]string{"中标", "合同", "订单"}, models.TypeOrderContract},
	{[]string{"风险提示", "退市"}, models.TypeRiskCrisis},
}

// ClassifyTitle derives an event subtype from keywords in the title. Always
// returns a member of the closed set, other when nothing matches.
func ClassifyTitle(title string) models.EventType {
	for _, rule := range titleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.typ
			}
		}
	}
	return models.TypeOther
}
