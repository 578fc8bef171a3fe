package domain

import "time"

// InventoryRow is one line of input stock as supplied by the caller.
// Quantities may be fractional (loose goods sold by weight).
type InventoryRow struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	GSTPercent  float64 `json:"gst_percent"`
	CESSPercent float64 `json:"cess_percent"`
	MRP         float64 `json:"mrp"`
}

// DailyTarget is the sales amount a single business date should reach.
type DailyTarget struct {
	Date   string  `json:"date"` // ISO date, YYYY-MM-DD
	Amount float64 `json:"amount"`
}

// CalendarSpec asks the service to generate the schedule instead of
// supplying explicit targets: every day of Month except the weekly
// off-day, each carrying DefaultAmount unless overridden per date.
type CalendarSpec struct {
	Month         string             `json:"month"` // YYYY-MM
	OffWeekday    string             `json:"off_weekday"`
	DefaultAmount float64            `json:"default_amount"`
	Overrides     map[string]float64 `json:"overrides,omitempty"`
}

type BillLine struct {
	ItemName    string  `json:"item_name"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	GSTPercent  float64 `json:"gst_percent"`
	CESSPercent float64 `json:"cess_percent"`
	MRP         float64 `json:"mrp"`
	LineTotal   float64 `json:"line_total"`
}

type Bill struct {
	Number        string     `json:"number"`
	Date          string     `json:"date"` // ISO date
	Purchaser     string     `json:"purchaser"`
	PaymentMethod string     `json:"payment_method"`
	Target        float64    `json:"target"`
	Total         float64    `json:"total"`
	Lines         []BillLine `json:"lines"`
}

// BillExportRow is one line item flattened for spreadsheet-style export.
// CGST and SGST are each half of the GST amount; RoundOff is the cash
// rounding delta and is zero for non-cash payment methods.
type BillExportRow struct {
	BillNumber    string  `json:"bill_number"`
	BillDate      string  `json:"bill_date"` // DD/MM/YYYY
	Purchaser     string  `json:"purchaser"`
	PaymentMethod string  `json:"payment_method"`
	ItemName      string  `json:"item_name"`
	Qty           float64 `json:"qty"`
	UnitPrice     float64 `json:"unit_price"`
	PreTaxAmount  float64 `json:"pre_tax_amount"`
	GSTPercent    float64 `json:"gst_percent"`
	CGSTPercent   float64 `json:"cgst_percent"`
	SGSTPercent   float64 `json:"sgst_percent"`
	CGSTAmount    float64 `json:"cgst_amount"`
	SGSTAmount    float64 `json:"sgst_amount"`
	CESSPercent   float64 `json:"cess_percent"`
	CESSAmount    float64 `json:"cess_amount"`
	LineTotal     float64 `json:"line_total"`
	BillTotal     float64 `json:"bill_total"`
	RoundOff      float64 `json:"round_off"`
	PayableTotal  float64 `json:"payable_total"`
}

// StockRow is the remaining stock snapshot after a run.
type StockRow struct {
	Name      string  `json:"name"`
	Remaining float64 `json:"remaining"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"` // remaining × unit price, 2 decimals
}

type SkippedDay struct {
	Date      string  `json:"date"`
	Kind      string  `json:"kind"` // partial | critical
	Target    float64 `json:"target"`
	Achieved  float64 `json:"achieved"`
	Remaining float64 `json:"remaining"`
}

const (
	SkipKindPartial  = "partial"
	SkipKindCritical = "critical"
)

// GenerationRequest is the full input of one run.
type GenerationRequest struct {
	Inventory     []InventoryRow `json:"inventory"`
	Targets       []DailyTarget  `json:"targets,omitempty"`
	Calendar      *CalendarSpec  `json:"calendar,omitempty"`
	Purchasers    []string       `json:"purchasers"`
	BillPrefix    string         `json:"bill_prefix"`
	BillStart     int            `json:"bill_start"`
	PaymentMethod string         `json:"payment_method"`
	MaxBillAmount float64        `json:"max_bill_amount"`
	ExactMargin   float64        `json:"exact_margin"`
	Strict        bool           `json:"strict"`
	Seed          int64          `json:"seed"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusAborted   = "aborted"
	RunStatusFailed    = "failed"
)

type GenerationRun struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	BillPrefix     string       `json:"bill_prefix"`
	PaymentMethod  string       `json:"payment_method"`
	Strict         bool         `json:"strict"`
	Seed           int64        `json:"seed"`
	TargetTotal    float64      `json:"target_total"`
	GeneratedTotal float64      `json:"generated_total"`
	BillCount      int          `json:"bill_count"`
	DayCount       int          `json:"day_count"`
	Warnings       []string     `json:"warnings,omitempty"`
	Bills          []Bill       `json:"bills,omitempty"`
	Stock          []StockRow   `json:"stock,omitempty"`
	Skips          []SkippedDay `json:"skips,omitempty"`
	CreatedBy      string       `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}

// RunStatus is the lightweight progress view served cache-first while a
// run is executing.
type RunStatus struct {
	RunID          string  `json:"run_id"`
	Status         string  `json:"status"`
	CurrentDate    string  `json:"current_date,omitempty"`
	DaysDone       int     `json:"days_done"`
	DayCount       int     `json:"day_count"`
	BillCount      int     `json:"bill_count"`
	GeneratedTotal float64 `json:"generated_total"`
	UpdatedAt      string  `json:"updated_at"`
}

type RunSummary struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	BillPrefix     string     `json:"bill_prefix"`
	TargetTotal    float64    `json:"target_total"`
	GeneratedTotal float64    `json:"generated_total"`
	BillCount      int        `json:"bill_count"`
	DayCount       int        `json:"day_count"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
