package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish-go/internal/engine"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"12", 12},
		{"1,234.5", 1234.5},
		{"1.234,5", 1234.5},
		{"12,5", 12.5},
		{"0,125", 0.125},
		{"1,234", 1234},
		{"1.234.567", 1234567},
		{"R$ 1.250,00", 1250},
		{"US$ 3.75", 3.75},
		{"(15)", -15},
		{"-2,5", -2.5},
		{"", 0},
		{"-", 0},
	}

	for _, tc := range cases {
		got, err := ParseNumber(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.InDelta(t, tc.want, got, 1e-9, tc.raw)
	}

	_, err := ParseNumber("n/a")
	assert.Error(t, err)
}

func TestDecimalMark(t *testing.T) {
	t.Run("should read a lone separator with a fixed mark", func(t *testing.T) {
		v, err := DecimalDot.Parse("12.500")
		require.NoError(t, err)
		assert.Equal(t, 12.5, v)

		v, err = DecimalComma.Parse("12.500")
		require.NoError(t, err)
		assert.Equal(t, 12500.0, v)

		v, err = DecimalComma.Parse("12,500")
		require.NoError(t, err)
		assert.Equal(t, 12.5, v)

		v, err = DecimalDot.Parse("1,234.5")
		require.NoError(t, err)
		assert.Equal(t, 1234.5, v)
	})

	t.Run("should keep guessing in auto mode", func(t *testing.T) {
		v, err := ParseNumber("12.500")
		require.NoError(t, err)
		assert.Equal(t, 12500.0, v)
	})

	t.Run("should parse mark names", func(t *testing.T) {
		m, err := ParseDecimalMark("")
		require.NoError(t, err)
		assert.Equal(t, DecimalAuto, m)

		m, err = ParseDecimalMark(" Dot ")
		require.NoError(t, err)
		assert.Equal(t, DecimalDot, m)

		_, err = ParseDecimalMark("period")
		assert.Error(t, err)
	})

	t.Run("should apply the mark to every cell of a file", func(t *testing.T) {
		data := "Produto,Estoque,Preço FOB Unitário\nHose,12.500,3.750\n"

		records, stats, err := ReadCSV(strings.NewReader(data), WithDecimalMark(DecimalDot))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 12.5, records[0].StockOnHand)
		assert.Equal(t, 3.75, records[0].UnitPrice)
		assert.Equal(t, DecimalDot, stats.DecimalMark)

		records, _, err = ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 12500.0, records[0].StockOnHand)
	})
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "precofobunitario", normalizeColumnName("Preço FOB\nUnitário"))
	assert.Equal(t, "precofobunitario", normalizeColumnName("preco_fob_unitario"))
	assert.Equal(t, "estoquetotal", normalizeColumnName("Estoque\r\nTotal "))
	assert.Equal(t, "media6meses", normalizeColumnName("Média 6 Meses"))
}

func TestReadCSV(t *testing.T) {
	t.Run("should map aliased headers", func(t *testing.T) {
		data := "Modelo,Produto,Fornecedor,Estoque Total,In Transit,Média 6 Meses,MOQ,\"Preço FOB\nUnitário\",CBM,Estoque Cobertura\n" +
			"M-1,Filter,Acme,12,5,3,10,800,0.02,\n" +
			"M-2,Pump,,\"1,200\",0,40,12,\"1.250,50\",0.1,2.5\n"

		records, stats, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "M-1", first.ID)
		assert.Equal(t, "Filter", first.Name)
		assert.Equal(t, "Acme", first.Supplier)
		assert.Equal(t, 12.0, first.StockOnHand)
		assert.Equal(t, 5.0, first.StockInTransit)
		assert.Equal(t, 3.0, first.AvgMonthlyConsumption)
		assert.Equal(t, 10.0, first.MOQ)
		assert.Equal(t, 800.0, first.UnitPrice)
		assert.Equal(t, 0.02, first.UnitVolume)
		assert.Nil(t, first.ExternalCoverageMonths)

		second := records[1]
		assert.Equal(t, "", second.Supplier)
		assert.Equal(t, 1200.0, second.StockOnHand)
		assert.Equal(t, 1250.5, second.UnitPrice)
		require.NotNil(t, second.ExternalCoverageMonths)
		assert.Equal(t, 2.5, *second.ExternalCoverageMonths)

		assert.Equal(t, 2, stats.Rows)
		assert.Equal(t, "Modelo", stats.Columns[FieldID])
	})

	t.Run("should read semicolon exports", func(t *testing.T) {
		data := "Produto;UltimoFornecedor;Estoque;Avg Sales;Preço FOB Unitário\n" +
			"Valve;Beta;10;2,5;99,90\n"

		records, _, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Equal(t, "Valve", records[0].ID)
		assert.Equal(t, "Beta", records[0].Supplier)
		assert.Equal(t, 2.5, records[0].AvgMonthlyConsumption)
		assert.Equal(t, 99.9, records[0].UnitPrice)
	})

	t.Run("should convert six-month consumption totals to monthly rates", func(t *testing.T) {
		data := "Produto,Estoque,Consumo 6 Meses\nHose,10,60\n"

		records, stats, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Equal(t, 10.0, records[0].AvgMonthlyConsumption)
		assert.Equal(t, engine.BasisSixMonthTotal, stats.ConsumptionBasis)
		assert.Equal(t, "Consumo 6 Meses", stats.Columns[FieldConsumptionSixMonths])
	})

	t.Run("should prefer a monthly column over a six-month total", func(t *testing.T) {
		data := "Produto,Consumo 6 Meses,Média 6 Meses\nHose,60,12\n"

		records, stats, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Equal(t, 12.0, records[0].AvgMonthlyConsumption)
		assert.Equal(t, engine.BasisMonthlyAverage, stats.ConsumptionBasis)
	})

	t.Run("should drop rows without a name and count bad numbers", func(t *testing.T) {
		data := "Produto,Estoque,MOQ\n" +
			",10,5\n" +
			"Hose,abc,5\n"

		records, stats, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)

		require.Len(t, records, 1)
		assert.Zero(t, records[0].StockOnHand)
		assert.Equal(t, 1, stats.DroppedRows)
		assert.Equal(t, 1, stats.InvalidNumbers)
	})

	t.Run("should require a product column", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("Estoque,MOQ\n1,2\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("should reject an empty file", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

func TestLoadSnapshot(t *testing.T) {
	data := "Produto,Estoque\nHose,10\n"

	a, _, err := LoadSnapshot(strings.NewReader(data), "acme", "stock")
	require.NoError(t, err)
	b, _, err := LoadSnapshot(strings.NewReader(data), "acme", "stock")
	require.NoError(t, err)
	c, _, err := LoadSnapshot(strings.NewReader(data+"Pump,3\n"), "acme", "stock")
	require.NoError(t, err)

	assert.Equal(t, "acme", a.Tenant)
	assert.Equal(t, "stock", a.DatasetType)
	assert.Len(t, a.Version, 40)
	assert.Equal(t, a.Version, b.Version)
	assert.NotEqual(t, a.Version, c.Version)

	dot, _, err := LoadSnapshot(strings.NewReader(data), "acme", "stock", WithDecimalMark(DecimalDot))
	require.NoError(t, err)
	assert.NotEqual(t, a.Version, dot.Version)
}
