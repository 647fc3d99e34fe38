package normalize

import "strings"

// Resolved logistics types.
const (
	LogisticsOther         = "Other"
	LogisticsOtherPickup   = "Other Pickup"
	LogisticsOtherPostal   = "Other Postal"
	LogisticsMercadoEnvios = "Mercado Envios"
	LogisticsShopeeXpress  = "Shopee Xpress"
	LogisticsPickupPostal  = "Pickup Postal"
	LogisticsFulfillment   = "Fulfillment"
	LogisticsFlexShipping  = "Flexible Shipping"
)

// logisticsRule pairs a predicate over (raw code, canonical store) with the
// resolved logistics type it yields.
type logisticsRule struct {
	matches func(code, store string) bool
	result  string
}

// logisticsRules is evaluated in order with the last matching rule winning,
// so rules later in the list have higher priority:
//
//  1. the unconditional default
//  2. exact raw-code mappings
//  3. store-prefix rules
//  4. fulfillment and self-service codes, which beat everything
var logisticsRules = []logisticsRule{
	{func(_, _ string) bool { return true }, LogisticsOther},
	{func(code, _ string) bool { return code == "xd_drop_off" }, LogisticsOtherPickup},
	{func(code, _ string) bool { return code == "drop_off" }, LogisticsOtherPostal},
	{func(_, store string) bool { return strings.HasPrefix(store, "Mercado Livre") }, LogisticsMercadoEnvios},
	{func(_, store string) bool { return strings.HasPrefix(store, "Shopee") }, LogisticsShopeeXpress},
	{func(_, store string) bool { return strings.HasPrefix(store, "Amazon") }, LogisticsPickupPostal},
	{func(code, _ string) bool { return code == "fulfillment" }, LogisticsFulfillment},
	{func(code, _ string) bool { return code == "self_service" }, LogisticsFlexShipping},
}

// ResolveLogistics resolves the logistics type for a record from its raw
// logistics code and canonical store name.
func ResolveLogistics(code, store string) string {
	code = strings.TrimSpace(code)
	resolved := LogisticsOther
	for _, rule := range logisticsRules {
		if rule.matches(code, store) {
			resolved = rule.result
		}
	}
	return resolved
}
