package gateway

// Outbound/inbound parameter names shared with the provider.
const (
	ParamMerchantCode = "merchant_code"
	ParamOrderRef     = "order_ref"
	ParamAmount       = "amount"
	ParamReturnURL    = "return_url"
	ParamResponseCode = "response_code"
	ParamGatewayTxnID = "gateway_txn_id"
)

// Installment percentages of the listing price, one per payment kind.
const (
	depositPct   = 10
	remainingPct = 90
)

// Config carries the provider credentials and endpoints. Loaded from the
// environment at startup.
type Config struct {
	PayURL       string // provider's hosted payment page
	MerchantCode string
	Secret       string // shared HMAC secret
	ReturnURL    string // user-facing redirect target after payment
}

// PaymentRequest is the outcome of building an outbound payment URL. The
// caller redirects the user to URL; OrderRef identifies the pending
// transaction the provider will call back about.
type PaymentRequest struct {
	URL      string
	OrderRef string
	Kind     string
	Amount   int64
}

// CallbackResult is what a validated callback resolves to. Duplicate is
// true when the delivery was a replay and the stored snapshot was
// returned without re-applying funds.
type CallbackResult struct {
	OrderRef      string `json:"order_ref"`
	AppointmentID uint   `json:"appointment_id"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	Success       bool   `json:"success"`
	ResponseCode  string `json:"response_code"`
	Message       string `json:"message"`
	GatewayTxnID  string `json:"gateway_txn_id"`
	Duplicate     bool   `json:"duplicate"`
}
