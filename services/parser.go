package services

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"flight-sniper/models"
)

// CarrierOther is reported when no known carrier name appears in a block.
const CarrierOther = "Other"

// DefaultDepartureTime is used when a block carries no HH:MM time.
const DefaultDepartureTime = "00:00"

var (
	// priceRegexp captures a pt-BR amount after the R$ marker: an integer part
	// grouped in thousands by one kind of separator ("." NBSP or space) or
	// ungrouped, then optional ",c" or ",cc". The amount must end there; a
	// trailing "." or "," is only allowed as punctuation, not before more digits.
	priceRegexp = regexp.MustCompile(`R\$[\s\x{00A0}\x{202F}]*` +
		`(\d{1,3}(?:\.\d{3})+|\d{1,3}(?:[\x{00A0}\x{202F}]\d{3})+|\d{1,3}(?: \d{3})+|\d+)` +
		`(?:,(\d{1,2}))?` +
		`(?:$|[^\d.,]|[.,](?:$|[^\d]))`)
	// timeRegexp captures a 24h clock time.
	timeRegexp = regexp.MustCompile(`(?:^|[^\d])([01]?\d|2[0-3]):([0-5]\d)(?:[^\d]|$)`)
	// groupSeparators are stripped from the integer part.
	groupSeparators = strings.NewReplacer(".", "", " ", "", "\u00a0", "", "\u202f", "")
)

// knownCarriers is matched case-insensitively in order; the first hit wins.
var knownCarriers = []string{
	"LATAM",
	"GOL",
	"AZUL",
	"Voepass",
	"TAP",
	"Copa",
	"Avianca",
	"Aerolíneas Argentinas",
	"American",
	"United",
	"Delta",
	"Air France",
	"KLM",
	"Iberia",
	"Emirates",
	"Qatar",
	"Lufthansa",
	"JetSMART",
	"Sky",
}

// ParsePrice extracts price, carrier and departure time from one card's text.
// ok is false when the block has no usable R$ amount.
func ParsePrice(block models.CandidateBlock) (offer models.ParsedOffer, ok bool) {
	text := string(block)

	price, ok := parseAmount(text)
	if !ok {
		return models.ParsedOffer{}, false
	}

	return models.ParsedOffer{
		Price:         price,
		Carrier:       matchCarrier(text),
		DepartureTime: matchDepartureTime(text),
		RawBlock:      block,
	}, true
}

func parseAmount(text string) (decimal.Decimal, bool) {
	m := priceRegexp.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}

	digits := groupSeparators.Replace(m[1])
	if m[2] != "" {
		digits += "." + m[2]
	}

	price, err := decimal.NewFromString(digits)
	if err != nil || price.IsNegative() {
		return decimal.Decimal{}, false
	}
	return price, true
}

func matchCarrier(text string) string {
	lower := strings.ToLower(text)
	for _, c := range knownCarriers {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return CarrierOther
}

func matchDepartureTime(text string) string {
	m := timeRegexp.FindStringSubmatch(text)
	if m == nil {
		return DefaultDepartureTime
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2]
}
