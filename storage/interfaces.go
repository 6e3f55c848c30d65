package storage

import (
	"attraction-insights/models"
	"attraction-insights/services"
)

// RawRecordWriter is the interface for persisting unprocessed scraped data.
type RawRecordWriter interface {
	WriteRaw(records []models.RawRecord) error
	Close() error
}

var (
	_ services.AttractionSaver  = (*Store)(nil)
	_ services.AttractionReader = (*Store)(nil)
	_ services.DashboardCache   = (*RedisCache)(nil)
	_ RawRecordWriter           = (*CSVWriter)(nil)
)
