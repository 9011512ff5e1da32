package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lower-cases s, trims it and strips diacritics ("Março" -> "marco").
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// foldHeader folds a column header and collapses separators to underscores
// so "Data da Venda" and "data_da_venda" resolve alike.
func foldHeader(s string) string {
	f := foldText(s)
	return strings.Join(strings.FieldsFunc(f, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	}), "_")
}

// monthNames maps folded month names and abbreviations (EN and PT) to months.
// Abbreviations only match whole words.
var monthNames = map[string]time.Month{
	"janeiro": time.January, "jan": time.January, "january": time.January,
	"fevereiro": time.February, "fev": time.February, "february": time.February, "feb": time.February,
	"marco": time.March, "mar": time.March, "march": time.March,
	"abril": time.April, "abr": time.April, "april": time.April, "apr": time.April,
	"maio": time.May, "mai": time.May, "may": time.May,
	"junho": time.June, "jun": time.June, "june": time.June,
	"julho": time.July, "jul": time.July, "july": time.July,
	"agosto": time.August, "ago": time.August, "august": time.August, "aug": time.August,
	"setembro": time.September, "set": time.September, "september": time.September, "sep": time.September, "sept": time.September,
	"outubro": time.October, "out": time.October, "october": time.October, "oct": time.October,
	"novembro": time.November, "nov": time.November, "november": time.November,
	"dezembro": time.December, "dez": time.December, "december": time.December, "dec": time.December,
}

// ambiguousMonthWords are abbreviations that are also common words in
// questions ("may", "set", "out"). They only count with a year next to them.
var ambiguousMonthWords = map[string]bool{
	"may": true, "set": true, "out": true, "mar": true, "dec": true,
}

var (
	yearPattern     = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	isoMonthPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})[-/](0[1-9]|1[0-2])\b`)
	wordPattern     = regexp.MustCompile(`[a-z0-9]+`)
)

// extractMonthYear finds a month and year mentioned in folded text.
// Either may be zero when absent. "2024-03" and "03/2024" style forms are recognised.
func extractMonthYear(folded string) (time.Month, int) {
	if m := isoMonthPattern.FindStringSubmatch(folded); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		return time.Month(mo), y
	}

	year := 0
	if m := yearPattern.FindString(folded); m != "" {
		year, _ = strconv.Atoi(m)
	}

	words := wordPattern.FindAllString(folded, -1)
	for i, w := range words {
		month, ok := monthNames[w]
		if !ok {
			continue
		}
		if ambiguousMonthWords[w] && !nearYear(words, i) {
			continue
		}
		return month, year
	}
	return 0, year
}

func nearYear(words []string, i int) bool {
	for _, j := range []int{i - 2, i - 1, i + 1, i + 2} {
		if j >= 0 && j < len(words) && yearPattern.MatchString(words[j]) {
			return true
		}
	}
	return false
}

// parseNumber reads numeric cell content in either "1234.5" or "1.234,50"
// form, tolerating a currency prefix such as "R$" or "$".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,50
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.50
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// 1234,5 or 1,234 thousands: a single comma followed by exactly three
		// digits is read as a thousands separator.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateLayouts are tried in order; day-first forms precede month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"2006-01",
}

// parseDate reads a date cell value.
func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}
