package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldStudentID    = "student_id"
	FieldScheduleID   = "schedule_id"
	FieldCategoryID   = "category_id"
	FieldTxnID        = "transaction_id"
	FieldAmountSatang = "amount_satang"
	FieldPayMethod    = "payment_method"
	FieldMonth        = "month"
	FieldBackend      = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentMirror  = "mirror"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentHydrate = "hydrate"
	ComponentBlob    = "blob"
	ComponentCache   = "cache"
	ComponentService = "service"
)
