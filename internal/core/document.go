package core

import "strconv"

// DocumentType is the numeric document code used by the bookkeeping service.
type DocumentType int

const (
	DocumentPriceQuote        DocumentType = 10
	DocumentOrder             DocumentType = 100
	DocumentDeliveryNote      DocumentType = 200
	DocumentReturnNote        DocumentType = 210
	DocumentTransactionAcct   DocumentType = 300
	DocumentTaxInvoice        DocumentType = 305
	DocumentTaxInvoiceReceipt DocumentType = 320
	DocumentCreditInvoice     DocumentType = 330
	DocumentReceipt           DocumentType = 400
	DocumentDonationReceipt   DocumentType = 405
)

func (t DocumentType) String() string {
	switch t {
	case DocumentPriceQuote:
		return "price_quote"
	case DocumentOrder:
		return "order"
	case DocumentDeliveryNote:
		return "delivery_note"
	case DocumentReturnNote:
		return "return_note"
	case DocumentTransactionAcct:
		return "transaction_account"
	case DocumentTaxInvoice:
		return "tax_invoice"
	case DocumentTaxInvoiceReceipt:
		return "tax_invoice_receipt"
	case DocumentCreditInvoice:
		return "credit_invoice"
	case DocumentReceipt:
		return "receipt"
	case DocumentDonationReceipt:
		return "donation_receipt"
	default:
		return "type_" + strconv.Itoa(int(t))
	}
}
