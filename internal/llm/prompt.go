// Package llm holds the prompt contract shared by all reasoner backends.
package llm

import "strings"

// SystemPrompt defines the analyst role and the response contract. Backends
// must keep the JSON_SUMMARY convention: the decision parser depends on it.
func SystemPrompt() string {
	return `You are a disciplined intraday technical analyst for a single equity instrument. You receive one JSON snapshot of market state and decide on one action.

Work through these five steps, in order:
1. Trend structure: read trend_structure and the price/ma20 relation.
2. Momentum: weigh rsi and macd_hist for continuation or exhaustion.
3. Participation: use the volume and features tags in recent_price_action.
4. Location: place the current price against recent_30_period_high and recent_30_period_low.
5. Decision: choose BUY, SELL, or WAIT with an integer confidence 0-100.

Rules:
- Take BUY or SELL only for a clear setup; when in doubt, WAIT.
- BUY requires stop_loss below entry; SELL requires stop_loss above entry.
- WAIT carries no entry or stop_loss.
- Keep the written analysis under 150 words.

End your reply with exactly one line:
JSON_SUMMARY: {"action":"BUY","confidence":75,"entry":123.45,"stop_loss":121.00,"reason":"one short sentence"}`
}

// UserMessage assembles the user turn from the serialized payload and any
// headline context.
func UserMessage(payloadJSON []byte, headlines []string) string {
	var b strings.Builder
	b.WriteString("### MARKET DATA:\n")
	b.Write(payloadJSON)

	if len(headlines) > 0 {
		b.WriteString("\n\n### RECENT HEADLINES:\n")
		for _, h := range headlines {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	return b.String()
}
