package model

// Shared defaults used by the CLI, the HTTP API and the batch driver.
const (
	DefaultWorkers    = 8
	DefaultFormat     = "csv"
	DefaultSchemaName = "full"
)

// DefaultExtensions lists the file suffixes picked up by folder walks.
var DefaultExtensions = []string{".txt", ".log", ".csv", ".evtx"}
