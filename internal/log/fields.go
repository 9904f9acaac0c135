package log

// Common field names for structured logging
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

	FieldLoanID        = "loan_id"
	FieldChitFundID    = "chit_fund_id"
	FieldRepaymentID   = "repayment_id"
	FieldPeriod        = "period"
	FieldAmount        = "amount"
	FieldOverdue       = "overdue"
	FieldMissedPeriods = "missed_periods"
	FieldStatus        = "status"
	FieldWindowStart   = "window_start"
	FieldWindowEnd     = "window_end"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLoan     = "loan"
	ComponentChitFund = "chitfund"
	ComponentFinance  = "finance"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpDelete    = "delete"
	OpList      = "list"
	OpRecompute = "recompute"
	OpAggregate = "aggregate"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
