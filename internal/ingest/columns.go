package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical snapshot column.
type Field string

const (
	FieldID               Field = "id"
	FieldName             Field = "name"
	FieldSupplier         Field = "supplier"
	FieldStockOnHand      Field = "stock_on_hand"
	FieldStockInTransit   Field = "stock_in_transit"
	FieldConsumption      Field = "avg_monthly_consumption"
	FieldMOQ              Field = "moq"
	FieldUnitPrice        Field = "unit_price"
	FieldUnitVolume       Field = "unit_volume"
	FieldExternalCoverage Field = "external_coverage_months"

	// FieldConsumptionSixMonths is a six-month consumption total, read only
	// when no monthly column exists.
	FieldConsumptionSixMonths Field = "consumption_six_months"
)

// columnAliases lists the headers accepted for each field, most specific first.
// Headers are compared after normalizeColumnName.
var columnAliases = []struct {
	field   Field
	aliases []string
}{
	{FieldID, []string{"modelo", "sku", "sku_id", "codigo", "code", "id"}},
	{FieldName, []string{"produto", "produtos", "produto_clean", "product", "product name", "nome", "name", "descricao"}},
	{FieldSupplier, []string{"ultimofornecedor", "ultimo_fornecedor", "ultimofor", "fornecedor", "supplier"}},
	{FieldStockOnHand, []string{"estoque total", "estoque_total", "estoque atual", "estoque", "stock on hand", "stock"}},
	{FieldStockInTransit, []string{"in transit", "in transit shipt", "transito", "stock in transit"}},
	{FieldConsumption, []string{
		"avg sales", "vendas medias", "media mensal", "consumo mensal", "avg monthly consumption",
		"media 6 meses", "monthly volume", "consumo",
	}},
	{FieldConsumptionSixMonths, []string{"consumo 6 meses", "vendas 6 meses", "six month consumption"}},
	{FieldMOQ, []string{"moq", "qtd moq", "min order"}},
	{FieldUnitPrice, []string{
		"preco fob unitario", "preco fob unit", "preco unitario", "preco unit", "preco fob",
		"fob unit", "unit price", "price",
	}},
	{FieldUnitVolume, []string{"cbm", "unit volume"}},
	{FieldExternalCoverage, []string{"estoque cobertura", "meses cobertura", "coverage months"}},
}

var columnNameSanitizer = strings.NewReplacer(
	" ", "", "_", "", ".", "", "-", "", "/", "", "\n", "", "\r", "", "\t", "",
)

// normalizeColumnName lowercases, strips accents and drops separators so
// "Preço FOB\nUnitário" and "preco_fob_unitario" compare equal.
func normalizeColumnName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	folded = strings.TrimSpace(strings.ToLower(folded))
	return columnNameSanitizer.Replace(folded)
}

// resolveColumns maps every known field to its header index, -1 when absent.
// The first header matching any alias of a field wins; a header is never
// bound to two fields.
func resolveColumns(header []string) map[Field]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeColumnName(h)
	}

	taken := make(map[int]bool, len(header))
	idx := make(map[Field]int, len(columnAliases))
	for _, col := range columnAliases {
		idx[col.field] = -1
		for _, alias := range col.aliases {
			target := normalizeColumnName(alias)
			found := -1
			for i, h := range normalized {
				if h == target && !taken[i] {
					found = i
					break
				}
			}
			if found >= 0 {
				idx[col.field] = found
				taken[found] = true
				break
			}
		}
	}
	return idx
}
