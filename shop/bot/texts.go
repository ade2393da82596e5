package bot

// User-facing replies.
const (
	textChooseCategory = "Choose a category:"
	textCatalogEmpty   = "The catalog is empty right now. Please come back later."
	textChooseItem     = "Choose an item:"
	textEnterEmail     = "Please enter your email for the receipt:"
	textBadEmail       = "❌ Invalid email. Please try again:"
	textConfirmEmail   = "Is this email correct?\n%s"
	textInvoiceFailed  = "⚠️ Could not create the invoice. Please try again in a moment."
	textUnavailable    = "⚠️ Service temporarily unavailable. Please try again later."
	textBadChoice      = "This option is no longer available. Send /start to see the catalog."
	textStale          = "This button is no longer active."
	textCancelled      = "Purchase cancelled. Send /start to begin again."
	textNothingToStop  = "Nothing to cancel."
	textIdleHint       = "Send /start to browse the catalog."
	textPaid           = "✅ Payment successful!\nOrder number: %s"
	textNotRecorded    = "⚠️ Your payment was received but the order could not be saved yet. We will contact you shortly."
	textDenied         = "⛔ Access denied"

	btnConfirm = "✅ Confirm"
	btnEdit    = "✏️ Edit"
)

// Callback keys.
const (
	cbCategory     = "cat"
	cbItem         = "item"
	cbEmailConfirm = "email_confirm"
	cbEmailEdit    = "email_edit"
)
