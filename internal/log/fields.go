package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldBackend    = "backend"
	FieldReportID   = "report_id"
	FieldCategory   = "category"
	FieldSequence   = "sequence"
	FieldCurrency   = "currency"
	FieldRateSource = "rate_source"
	FieldQueueID    = "queue_id"
	FieldAttempts   = "attempts"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentRates   = "rates"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentBackend = "backend"
	ComponentSession = "session"
)

// Operations defines standard operation names.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpAppend   = "append"
	OpDelete   = "delete"
	OpSync     = "sync"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
