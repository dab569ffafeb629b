package payments

// EventType is the closed set of provider events the processor acts on.
// Everything else parses to EventUnknown and is acknowledged untouched.
type EventType int

const (
	EventUnknown EventType = iota
	EventCheckoutCompleted
	EventSubscriptionCreated
	EventSubscriptionUpdated
	EventSubscriptionDeleted
	EventInvoicePaid
	EventInvoicePaymentFailed
)

var eventTypeNames = map[string]EventType{
	"checkout.session.completed":    EventCheckoutCompleted,
	"customer.subscription.created": EventSubscriptionCreated,
	"customer.subscription.updated": EventSubscriptionUpdated,
	"customer.subscription.deleted": EventSubscriptionDeleted,
	"invoice.paid":                  EventInvoicePaid,
	"invoice.payment_failed":        EventInvoicePaymentFailed,
}

// ParseEventType maps a provider type string onto EventType.
func ParseEventType(s string) EventType {
	if t, ok := eventTypeNames[s]; ok {
		return t
	}
	return EventUnknown
}

func (t EventType) String() string {
	for name, v := range eventTypeNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}

// Event is a verified webhook event. Exactly one payload pointer is set,
// matching Type; unknown events carry none.
type Event struct {
	ID      string
	Type    EventType
	RawType string
	// Account is the connected account the event originated on, if any.
	Account string

	Checkout     *CheckoutCompleted
	Subscription *Subscription
	Invoice      *Invoice
}

// CheckoutCompleted is the payload of checkout.session.completed.
type CheckoutCompleted struct {
	SessionID         string
	Mode              string
	PaymentStatus     string
	ClientReferenceID string
	PaymentIntentID   string
	SubscriptionID    string
	CustomerID        string
	AmountTotal       int64
	Currency          string
	Metadata          map[string]string
}

// Paid reports whether the buyer's payment has cleared.
func (c CheckoutCompleted) Paid() bool { return c.PaymentStatus == "paid" }

// Invoice is the payload of invoice.* events.
type Invoice struct {
	ID             string
	SubscriptionID string
	CustomerID     string
}
