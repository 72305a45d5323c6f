package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldQuery          = "query"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldSuccess        = "success"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldPeriodStart    = "period_start"
	FieldPeriodEnd      = "period_end"
	FieldSupplier       = "supplier"
	FieldDocumentNumber = "document_number"
	FieldDocumentID     = "document_id"
	FieldURL            = "url"
	FieldCount          = "count"
	FieldAttachment     = "attachment"
	FieldDeliveryID     = "delivery_id"
	FieldBackend        = "backend"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentReport      = "report"
	ComponentBookkeeping = "bookkeeping"
	ComponentOrganizer   = "organizer"
	ComponentComposer    = "composer"
	ComponentDelivery    = "delivery"
	ComponentAMQP        = "amqp"
	ComponentSecurity    = "security"
	ComponentRateLimit   = "rate_limit"
	ComponentScheduler   = "scheduler"
	ComponentPDF         = "pdf"
	ComponentCache       = "cache"
)

// Operations defines standard operation names
const (
	OpCheck    = "check"
	OpSend     = "send"
	OpFetch    = "fetch"
	OpDownload = "download"
	OpMerge    = "merge"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error field, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds the period bounds as YYYY-MM-DD strings
func (f LogFields) WithPeriod(start, end string) LogFields {
	f[FieldPeriodStart] = start
	f[FieldPeriodEnd] = end
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
