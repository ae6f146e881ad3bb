package domain

import "time"

// LogType classifies audit log entries. Values match what operators see
// in the log view, so they read as labels rather than enum tokens.
type LogType string

const (
	LogOrderCreated   LogType = "Order Created"
	LogOrderProcessed LogType = "Order Processed"
	LogError          LogType = "Error"
	LogSystem         LogType = "System"
)

// LogEntry is an append-only audit fact. CustomerID is nil for system
// entries such as batch summaries.
type LogEntry struct {
	ID           int64
	CustomerID   *int64
	CustomerName string
	Type         LogType
	CustomerType CustomerType
	Product      string
	Quantity     int
	Timestamp    time.Time
	Message      string
}
