package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsableRemark is returned when a receipt's remarks do not carry an
// invoice reference.
var ErrUnparsableRemark = errors.New("unparsable receipt remark")

// invoiceTokenIndex is the position of the invoice number in a receipt's
// remarks, e.g. "payment for tax invoice 20001": the fifth word.
const invoiceTokenIndex = 4

// ParseInvoiceReference extracts the invoice number a receipt refers to.
// The remark format is fixed by the bookkeeping service and is fragile: any
// change in wording moves the token.
func ParseInvoiceReference(remarks string) (string, error) {
	fields := strings.Fields(remarks)
	if len(fields) <= invoiceTokenIndex {
		return "", fmt.Errorf("%w: %q", ErrUnparsableRemark, remarks)
	}
	return fields[invoiceTokenIndex], nil
}
