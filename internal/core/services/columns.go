package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

// columnRole is the business meaning of a dataset column.
type columnRole int

const (
	roleDate columnRole = iota
	roleProduct
	roleCategory
	roleRegion
	roleQuantity
	roleRevenue
	roleTransaction
	roleCount
)

// priorityRoles is the encoder column order ahead of the remaining headers.
var priorityRoles = []columnRole{roleDate, roleProduct, roleCategory, roleRegion, roleQuantity, roleRevenue}

// roleSynonyms are folded header names per role, most specific first.
var roleSynonyms = [roleCount][]string{
	roleDate: {"data", "data_venda", "data_da_venda", "dia", "date", "sale_date", "order_date"},
	roleProduct: {
		"produto", "produtos", "product", "product_name", "item", "nome", "descricao", "sku",
		"codigo", "cod", "referencia",
	},
	roleCategory: {"categoria", "category", "tipo", "linha", "segmento"},
	roleRegion:   {"regiao", "region", "estado", "uf", "cidade", "city", "loja", "store"},
	roleQuantity: {"quantidade", "qtd", "qtde", "volume", "unidades", "quantity", "qty", "units"},
	roleRevenue: {
		"receita_total", "receita", "faturamento", "valor_total", "valor", "total", "vendas",
		"revenue", "amount", "sales",
	},
	roleTransaction: {
		"id_transacao", "id_da_transacao", "transaction_id", "transacao", "transacao_id",
		"pedido", "order_id", "id",
	},
}

// columnRoles is the resolved header-to-role mapping for one dataset shape.
type columnRoles struct {
	byRole [roleCount]string
	has    [roleCount]bool
}

// resolveColumnRoles matches folded headers against synonyms. The first
// synonym present wins, so "receita_total" beats "total" when both exist.
func resolveColumnRoles(columns []string) columnRoles {
	folded := make(map[string]string, len(columns))
	for _, c := range columns {
		key := foldHeader(c)
		if _, dup := folded[key]; !dup {
			folded[key] = c
		}
	}

	var roles columnRoles
	taken := make(map[string]bool)
	for role := columnRole(0); role < roleCount; role++ {
		for _, syn := range roleSynonyms[role] {
			col, ok := folded[syn]
			if !ok || taken[col] {
				continue
			}
			roles.byRole[role] = col
			roles.has[role] = true
			taken[col] = true
			break
		}
	}
	return roles
}

func (r columnRoles) column(role columnRole) (string, bool) {
	return r.byRole[role], r.has[role]
}

// text returns the trimmed string form of the role's value in rec.
func (r columnRoles) text(rec domain.Record, role columnRole) (string, bool) {
	col, ok := r.column(role)
	if !ok {
		return "", false
	}
	v, ok := rec.Values[col]
	if !ok {
		return "", false
	}
	s := formatValue(v)
	if s == "" {
		return "", false
	}
	return s, true
}

// number returns the numeric value of the role's column in rec.
func (r columnRoles) number(rec domain.Record, role columnRole) (float64, bool) {
	col, ok := r.column(role)
	if !ok {
		return 0, false
	}
	return toNumber(rec.Values[col])
}

// period resolves the record's month from the date role, falling back
// to the period inferred from the dataset title.
func (r columnRoles) period(rec domain.Record, fallback *domain.Period) (domain.Period, bool) {
	if col, ok := r.column(roleDate); ok {
		if d, ok := parseDate(rec.Values[col]); ok {
			return domain.PeriodOf(d), true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.Period{}, false
}

// periodFromTitle infers a period from a dataset title such as "Vendas Março 2024".
// Both month and year must be present.
func periodFromTitle(title string) *domain.Period {
	month, year := extractMonthYear(foldText(title))
	if month == 0 || year == 0 {
		return nil
	}
	return &domain.Period{Year: year, Month: month}
}

// toNumber converts a cell value to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// formatValue renders a scalar cell value. Empty strings and nil render as "".
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
