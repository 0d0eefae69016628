// Package classify maps raw source-specific type labels onto the closed
// event taxonomy. Each source keeps its own table; lookups are exact first,
// then substring fallback in declaration order, defaulting to other. The
// mapping is total and deterministic.
package classify

import (
	"strings"

	"github.com/liuyingduo/stock-news/internal/models"
)

// Source labels as they appear on notices.
const (
	SourceSSE  = "上海证券交易所"
	SourceSZSE = "深圳证券交易所"
	SourceBSE  = "北京证券交易所"
)

type mapping struct {
	label string
	typ   models.EventType
}

// sseTable covers the Shanghai exchange bulletin-type descriptions.
var sseTable = []mapping{
	{"财务报告", models.TypeFinPerf},
	{"业绩预告、业绩快报和盈利预测", models.TypeFinPerf},
	{"业绩预告", models.TypeFinPerf},
	{"业绩快报", models.TypeFinPerf},
	{"利润分配、公积金转增股本", models.TypeCapitalAction},
	{"分红", models.TypeCapitalAction},
	{"配股", models.TypeCapitalAction},
	{"增发", models.TypeCapitalAction},
	{"可转债", models.TypeCapitalAction},
	{"公司债券", models.TypeCapitalAction},
	{"募集资金使用与管理", models.TypeCapitalAction},
	{"融资", models.TypeCapitalAction},
	{"资产重组", models.TypeMergerRe},
	{"收购兼并", models.TypeMergerRe},
	{"重组", models.TypeMergerRe},
	{"股份回购", models.TypeBuyback},
	{"回购", models.TypeBuyback},
	{"股权变动", models.TypeHolderChange},
	{"持股变动", models.TypeHolderChange},
	{"增持", models.TypeHolderChange},
	{"减持", models.TypeHolderChange},
	{"股权转让", models.TypeHolderChange},
	{"风险提示", models.TypeRiskCrisis},
	{"暂停上市", models.TypeRiskCrisis},
	{"终止上市", models.TypeRiskCrisis},
	{"退市风险", models.TypeRiskCrisis},
	{"诉讼", models.TypeLitigation},
	{"仲裁", models.TypeLitigation},
	{"处罚", models.TypeRegulatory},
	{"高管变动", models.TypeInfoChange},
	{"人事变动", models.TypeInfoChange},
	{"信息变更", models.TypeInfoChange},
	{"公司重要基本信息变化", models.TypeInfoChange},
	{"董事会和监事会", models.TypeOpsInfo},
	{"股东大会", models.TypeOpsInfo},
	{"日常经营", models.TypeOpsInfo},
	{"重大事项", models.TypeOther},
}

// szseTable covers the Shenzhen exchange category names swept by the client.
var szseTable = []mapping{
	{"年度报告", models.TypeFinPerf},
	{"半年度报告", models.TypeFinPerf},
	{"一季度报告", models.TypeFinPerf},
	{"三季度报告", models.TypeFinPerf},
	{"业绩预告", models.TypeFinPerf},
	{"首次公开发行及上市", models.TypeCapitalAction},
	{"配股", models.TypeCapitalAction},
	{"增发", models.TypeCapitalAction},
	{"可转换债券", models.TypeCapitalAction},
	{"权证相关公告", models.TypeCapitalAction},
	{"其它融资", models.TypeCapitalAction},
	{"债券公告", models.TypeCapitalAction},
	{"权益分派与限制出售股份上市", models.TypeCapitalAction},
	{"股权变动", models.TypeHolderChange},
	{"交易", models.TypeOrderContract},
	{"股东会", models.TypeOpsInfo},
	{"董事会公告", models.TypeOpsInfo},
	{"监事会公告", models.TypeOpsInfo},
	{"澄清、风险提示、业绩预告事项", models.TypeRiskCrisis},
	{"风险提示", models.TypeRiskCrisis},
	{"特别处理和退市", models.TypeRiskCrisis},
	{"中介机构报告", models.TypeOpsInfo},
	{"上市公司制度", models.TypeInfoChange},
	{"补充及更正", models.TypeInfoChange},
	{"其它重大事项", models.TypeOther},
}

// bseTable covers the Beijing exchange disclosure-subtype group names.
var bseTable = []mapping{
	{"年度报告", models.TypeFinPerf},
	{"半年度报告", models.TypeFinPerf},
	{"一季度报告", models.TypeFinPerf},
	{"三季度报告", models.TypeFinPerf},
	{"业绩预告、业绩快报类", models.TypeFinPerf},
	{"公开发行类", models.TypeCapitalAction},
	{"募集资金管理类", models.TypeCapitalAction},
	{"权益分派", models.TypeCapitalAction},
	{"股份回购类", models.TypeBuyback},
	{"股权激励类", models.TypeInsiderTrans},
	{"员工持股计划类", models.TypeInsiderTrans},
	{"董事会决议", models.TypeOpsInfo},
	{"监事会决议", models.TypeOpsInfo},
	{"股东大会决议", models.TypeOpsInfo},
	{"公司经营类", models.TypeOpsInfo},
}

var sourceTables = map[string][]mapping{
	SourceSSE:  sseTable,
	SourceSZSE: szseTable,
	SourceBSE:  bseTable,
}

// exact-lookup indexes built once from the ordered tables
var sourceIndexes = func() map[string]map[string]models.EventType {
	indexes := make(map[string]map[string]models.EventType, len(sourceTables))
	for source, table := range sourceTables {
		idx := make(map[string]models.EventType, len(table))
		for _, m := range table {
			if _, ok := idx[m.label]; !ok {
				idx[m.label] = m.typ
			}
		}
		indexes[source] = idx
	}
	return indexes
}()

// MapType resolves a raw source type label to an event subtype. Exact match
// first, then the first table entry whose label appears inside the raw
// label, then other. Unknown sources map everything to other.
func MapType(source, rawLabel string) models.EventType {
	if rawLabel == "" {
		return models.TypeOther
	}

	if idx, ok := sourceIndexes[source]; ok {
		if typ, ok := idx[rawLabel]; ok {
			return typ
		}
	}

	for _, m := range sourceTables[source] {
		if strings.Contains(rawLabel, m.label) {
			return m.typ
		}
	}

	return models.TypeOther
}
