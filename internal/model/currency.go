package model

// activeCurrencies lists the ISO 4217 alphabetic codes accepted on
// invoices. Special-purpose codes (XXX, XTS, fund codes, metals) are
// deliberately absent.
var activeCurrencies = map[string]struct{}{
	"AED": {}, "AUD": {}, "BGN": {}, "BRL": {}, "CAD": {}, "CHF": {},
	"CLP": {}, "CNY": {}, "COP": {}, "CZK": {}, "DKK": {}, "EGP": {},
	"EUR": {}, "GBP": {}, "HKD": {}, "HUF": {}, "IDR": {}, "ILS": {},
	"INR": {}, "ISK": {}, "JPY": {}, "KRW": {}, "MAD": {}, "MXN": {},
	"MYR": {}, "NGN": {}, "NOK": {}, "NZD": {}, "PHP": {}, "PLN": {},
	"RON": {}, "RSD": {}, "SAR": {}, "SEK": {}, "SGD": {}, "THB": {},
	"TRY": {}, "TWD": {}, "UAH": {}, "USD": {}, "VND": {}, "ZAR": {},
}

// KnownCurrency reports whether code is an accepted ISO 4217 currency
func KnownCurrency(code string) bool {
	_, ok := activeCurrencies[code]
	return ok
}
