// Package model defines domain records produced by chain ingestion.
package model

// Chain is one ledger tracked by the indexer. Height is the checkpoint: the
// highest block whose writes have fully committed. It never decreases.
type Chain struct {
	Name            string
	Height          uint64
	MainTokenSymbol string
}

// GlobalVariable is a named process-wide checkpoint value. Exactly one of
// NumberValue/StringValue is meaningful, selected by the writer.
type GlobalVariable struct {
	Name        string
	NumberValue int64
	StringValue string
}
