package log

// Field names shared by every structured log line.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUser       = "user"
	FieldRole       = "role"

	FieldItemID        = "item_id"
	FieldItemVersion   = "item_version"
	FieldItemStatus    = "item_status"
	FieldUraian        = "uraian"
	FieldJumlahSemula  = "jumlah_semula"
	FieldJumlahMenjadi = "jumlah_menjadi"
	FieldSelisih       = "selisih"
	FieldDimension     = "dimension"
	FieldRPDStatus     = "rpd_status"
	FieldImportRows    = "import_rows"
	FieldImportSkipped = "import_skipped"
	FieldSpreadsheet   = "spreadsheet_id"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRevision  = "revision"
	ComponentSummary   = "summary"
	ComponentRPD       = "rpd"
	ComponentImport    = "import"
	ComponentExport    = "export"
	ComponentAuth      = "auth"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operation names.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpApprove  = "approve"
	OpReject   = "reject"
	OpList     = "list"
	OpSummary  = "summary"
	OpImport   = "import"
	OpExport   = "export"
	OpSync     = "sync"
	OpLogin    = "login"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields is a builder for structured log attributes.
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

// WithError adds the error message; a nil error adds nothing.
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

// WithItem adds the identifying and monetary fields of a budget line.
func (f LogFields) WithItem(id string, version int64, status string, semula, menjadi int64) LogFields {
	f[FieldItemID] = id
	f[FieldItemVersion] = version
	f[FieldItemStatus] = status
	f[FieldJumlahSemula] = semula
	f[FieldJumlahMenjadi] = menjadi
	f[FieldSelisih] = menjadi - semula
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
