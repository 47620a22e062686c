package gateway

// CodeSuccess is the provider's response code for a completed payment.
const CodeSuccess = "00"

// codeMessages maps the provider's documented response codes to the
// user-facing messages surfaced on the return page.
var codeMessages = map[string]string{
	"00": "Payment successful",
	"01": "Payment pending at provider",
	"02": "Payment declined by issuer",
	"05": "Insufficient funds at provider",
	"06": "Transaction limit exceeded",
	"09": "Payment cancelled by user",
	"10": "Payment session expired",
	"12": "Invalid transaction",
	"91": "Provider temporarily unavailable",
	"99": "Unknown provider error",
}

// CodeMessage translates a provider response code. Unmapped codes fall
// back to the generic failure message.
func CodeMessage(code string) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return codeMessages["99"]
}
