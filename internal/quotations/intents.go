package quotations

// IntentKind names a side effect requested by the lifecycle engine.
type IntentKind string

const (
	IntentNotifyCustomer IntentKind = "notify_customer"
	IntentNotifyStaff    IntentKind = "notify_staff"
	IntentCreateOrder    IntentKind = "create_order"
)

// Intent describes a side effect the engine requests but does not execute.
// Notification intents carry the target address and a rendered message;
// the order intent carries the quotation snapshot whose items and totals
// the order must copy.
type Intent struct {
	Kind        IntentKind
	QuotationID int64
	Number      string
	Target      string
	Subject     string
	Message     string
	Snapshot    *Quotation
}

func notifyCustomer(q Quotation, subject, message string) Intent {
	return Intent{
		Kind:        IntentNotifyCustomer,
		QuotationID: q.ID,
		Number:      q.Number,
		Target:      q.CustomerEmail,
		Subject:     subject,
		Message:     message,
	}
}

func notifyStaff(q Quotation, subject, message string) Intent {
	return Intent{
		Kind:        IntentNotifyStaff,
		QuotationID: q.ID,
		Number:      q.Number,
		Subject:     subject,
		Message:     message,
	}
}
