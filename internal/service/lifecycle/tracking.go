package lifecycle

import (
	"fmt"
	"math/rand"
	"strings"
)

// courierPrefixes — префиксы трек-номеров известных курьерских служб.
var courierPrefixes = map[string]string{
	"pathao":    "PTH",
	"steadfast": "SF",
	"redx":      "RDX",
}

// generateTracking собирает трек-номер вида <PREFIX>-<6 цифр>-<хвост orderID>.
// Вызывается один раз на заказ: повторная отгрузка не перегенерирует номер.
func generateTracking(courier, orderID string) string {
	prefix, ok := courierPrefixes[strings.ToLower(strings.TrimSpace(courier))]
	if !ok {
		prefix = "TRK"
	}

	suffix := orderID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}

	return fmt.Sprintf("%s-%06d-%s", prefix, rand.Intn(900000)+100000, suffix)
}
