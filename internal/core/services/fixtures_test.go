package services

import (
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var salesColumns = []string{"Data", "Produto", "Categoria", "Regiao", "Quantidade", "Receita", "ID Transacao"}

type saleRow struct {
	date     string
	product  string
	category string
	region   string
	qty      int
	revenue  float64
	txn      string
}

// tenRowFixture holds hand-checked sales:
//
//	2024-03 revenue: Laptop X1 9000, Monitor 3200, Headset 800, Keyboard 800, Mouse 500
//	2024-03 quantity: Mouse 10, Keyboard 8, Headset 4, Monitor 4, Laptop X1 3
//	2024-02 revenue: Laptop X1 15000, Mouse 1000
//	2023-03 revenue: Webcam 400
var tenRowFixture = []saleRow{
	{"2024-03-01", "Laptop X1", "Computers", "South", 2, 6000, "T-202403-0001"},
	{"2024-03-02", "Mouse", "Accessories", "North", 10, 500, "T-202403-0002"},
	{"2024-03-03", "Monitor", "Displays", "South", 3, 2400, "T-202403-0003"},
	{"2024-03-04", "Laptop X1", "Computers", "North", 1, 3000, "T-202403-0004"},
	{"2024-03-05", "Keyboard", "Accessories", "South", 8, 800, "T-202403-0005"},
	{"2024-03-06", "Headset", "Accessories", "East", 4, 800, "T-202403-0006"},
	{"06/03/2024", "Monitor", "Displays", "East", 1, 800, "T-202403-0007"},
	{"2024-02-10", "Laptop X1", "Computers", "South", 5, 15000, "T-202402-0001"},
	{"2024-02-11", "Mouse", "Accessories", "North", 20, 1000, "T-202402-0002"},
	{"2023-03-10", "Webcam", "Accessories", "West", 2, 400, "T-202303-0001"},
}

func buildDataset(id, title string, rows []saleRow) domain.Dataset {
	ds := domain.Dataset{ID: id, Title: title, Columns: salesColumns}
	for i, r := range rows {
		ds.Records = append(ds.Records, domain.Record{
			DatasetID: id,
			RowIndex:  i,
			Columns:   salesColumns,
			Values: map[string]any{
				"Data":         r.date,
				"Produto":      r.product,
				"Categoria":    r.category,
				"Regiao":       r.region,
				"Quantidade":   r.qty,
				"Receita":      r.revenue,
				"ID Transacao": r.txn,
			},
		})
	}
	return ds
}

func tenRowSnapshot() *domain.Snapshot {
	return domain.NewSnapshot([]domain.Dataset{buildDataset("sales", "Sales", tenRowFixture)}, time.Now())
}

func period(year int, month time.Month) *domain.Period {
	return &domain.Period{Year: year, Month: month}
}
