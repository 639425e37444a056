package azure

import "context"

// ReportStorage persists exported reports outside the device
type ReportStorage interface {
	UploadReport(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
	DownloadReport(ctx context.Context, blobName string) ([]byte, error)
	ListReports(ctx context.Context, userID string) ([]string, error)
}

var (
	_ ReportStorage = (*BlobStorageClient)(nil)
	_ ReportStorage = (*MockBlobStorageClient)(nil)
)
