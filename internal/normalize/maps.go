package normalize

// storeNames canonicalizes raw store names as exported by the channels.
// Lookups are exact-match; unmapped names pass through unchanged (they are
// treated as already canonical). Canonical values are never keys that map
// elsewhere, which keeps the mapping a fixed point.
var storeNames = map[string]string{
	"Amazon - Daril Vendas":       "Amazon - Daril Vendas",
	"Amazon - LOJA DA MADA":       "Amazon - Loja Da Mada",
	"Amazon - LOJA THITI":         "Amazon - Loja Thiti",
	"Amazon - MEGAJU":             "Amazon - Megaju",
	"Amazon - MEGA STAR SHOPP":    "Amazon - Mega Star Shop",
	"Amazon - NANU SHOP":          "Amazon - Nanu Shop",
	"Ali Express - LOJA THITI":    "AliExpress - Loja Thiti",
	"Ali Express - NANU.SHOP":     "AliExpress - Nanu Shop",
	"Kabum - JULISHOP":            "Kabum - Julishop",
	"Mercado Livre - JULISHOP":    "Mercado Livre - Julishop",
	"Mercado Livre -  LOJA_THITI": "Mercado Livre - Loja Thiti",
	"Mercado Livre - LOJA_THITI":  "Mercado Livre - Loja Thiti",
	"Mercado Livre - MEGAJU":      "Mercado Livre - Megaju",
	"Shopee - NANU SHOP":          "Shopee - Nanu Shop",
	"Shopee - Loja_da_mada":       "Shopee - Loja da Mada",
	"Shopee - Daril Vendas":       "Shopee - Daril Vendas",
	"TikTok - NANU SHOP":          "TikTok - Nanu Shop",
	"TikTok - LOJA DA MADA":       "TikTok - Loja da Mada",
	"Magazine Luiza - Shop Midas": "Magazine Luiza - Shop Midas",
	"Shopify - Shopify":           "Shopify - Shopify",
}

// statusNames translates raw order status codes into display values.
// Unmapped codes pass through trimmed.
var statusNames = map[string]string{
	"awaiting_send":     "Ag. envio",
	"awaiting_logistic": "Ag. logística",
	"approved":          "Aprovado",
	"canceled":          "Cancelado",
	"delivered":         "Entregue",
	"not_delivered":     "Não Entregue",
	"ready_to_print":    "Pronto para Impressão",
	"sent":              "Enviado",
	"awaiting_invoice":  "Ag. Nota Fiscal",
	"awaiting_approval": "Ag. Aprovação",
	"billed":            "Faturado",
	"returned_logistic": "Logística Devolvida",
	"integration_error": "Erro Integração",
	"processing":        "Processando",
	"awaiting_payment":  "Ag. Pagamento",
	"canceled_resolved": "Cancelado e resolvido",
}

// CanonicalStore returns the canonical store name for a raw export name.
func CanonicalStore(raw string) string {
	if canonical, ok := storeNames[raw]; ok {
		return canonical
	}
	return raw
}

// TranslateStatus returns the display status for a raw status code.
func TranslateStatus(raw string) string {
	if translated, ok := statusNames[raw]; ok {
		return translated
	}
	return raw
}
