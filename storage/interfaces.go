package storage

import "listing-resolver/models"

// ReportWriter is the interface any result backend must satisfy.
type ReportWriter interface {
	WriteReport(report *models.RunReport) error
	Close() error
}
