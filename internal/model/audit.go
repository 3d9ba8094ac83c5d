package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Operation types
const (
	OpAdd         = "add"
	OpModify      = "modify"
	OpDelete      = "delete"
	OpBatchAdd    = "batch_add"
	OpBatchDelete = "batch_delete"
	OpCreateItem  = "create_item"
	OpRebuild     = "rebuild"
	OpDedup       = "dedup"
	OpExport      = "export"
	OpQuery       = "query"
)

// Operation categories
const (
	CategoryAdd    = "add"
	CategoryModify = "modify"
	CategoryDelete = "delete"
	CategoryQuery  = "query"
	CategorySystem = "system"
	CategoryOther  = "other"
)

// Tab names identify the section an operation came from
const (
	TabStockIn      = "stock_in"
	TabStockOut     = "stock_out"
	TabTradeMonitor = "trade_monitor"
	TabItemDict     = "item_dict"
	TabInventory    = "inventory"
	TabOCRImport    = "ocr_import"
)

// Payload targets
const (
	TargetStockIn      = "stock_in"
	TargetStockOut     = "stock_out"
	TargetTradeMonitor = "trade_monitor"
	TargetItem         = "item"
	TargetInventory    = "inventory"
)

var operationCategories = map[string]string{
	OpAdd:         CategoryAdd,
	OpBatchAdd:    CategoryAdd,
	OpCreateItem:  CategoryAdd,
	OpModify:      CategoryModify,
	OpDelete:      CategoryDelete,
	OpBatchDelete: CategoryDelete,
	OpQuery:       CategoryQuery,
	OpExport:      CategoryQuery,
	OpRebuild:     CategorySystem,
	OpDedup:       CategorySystem,
}

var reversibleOperations = map[string]bool{
	OpAdd:         true,
	OpModify:      true,
	OpDelete:      true,
	OpBatchAdd:    true,
	OpBatchDelete: true,
}

// CategoryOf maps an operation type to its category.
func CategoryOf(opType string) string {
	if c, ok := operationCategories[opType]; ok {
		return c
	}
	return CategoryOther
}

// CanRevert is the static reversibility capability of an operation type.
func CanRevert(opType string) bool {
	return reversibleOperations[opType]
}

// OperationLog records one mutation with enough payload to reverse it.
// Rows are append-only; only Reverted is ever flipped afterwards.
type OperationLog struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationType     string         `gorm:"type:varchar(50);not null;index" json:"operation_type"`
	OperationCategory string         `gorm:"type:varchar(20);not null;default:''" json:"operation_category"`
	TabName           string         `gorm:"type:varchar(50);index" json:"tab_name"`
	OperationTime     time.Time      `gorm:"not null;index" json:"operation_time"`
	OperationData     datatypes.JSON `gorm:"type:text" json:"operation_data"`
	Reverted          bool           `gorm:"not null;default:false;index" json:"reverted"`
	CanRevert         bool           `gorm:"not null;default:true" json:"can_revert"`
	RevertSeq         int64          `gorm:"not null;default:0;index" json:"-"` // undo order of reverted entries, newest highest
	UpdateTime        time.Time      `gorm:"autoUpdateTime" json:"update_time"`
}

func (OperationLog) TableName() string {
	return "operation_logs"
}

// Payload is the tagged body of an operation log entry. Kind mirrors the
// operation type so the undo dispatcher can stay total.
type Payload struct {
	Kind    string            `json:"kind"`
	Target  string            `json:"target"`
	Records []json.RawMessage `json:"records,omitempty"`
	Old     json.RawMessage   `json:"old,omitempty"`
	New     json.RawMessage   `json:"new,omitempty"`
	Note    string            `json:"note,omitempty"`
}

// Decode parses the stored payload of l.
func (l *OperationLog) Decode() (Payload, error) {
	var p Payload
	if len(l.OperationData) == 0 {
		return p, nil
	}
	err := json.Unmarshal(l.OperationData, &p)
	return p, err
}

// OperationLogFilter narrows paginated log queries. Empty strings match
// everything and a nil Reverted matches both states.
type OperationLogFilter struct {
	Tab      string
	Type     string
	Category string
	Keyword  string
	Reverted *bool
	Page     int
	Limit    int
}
