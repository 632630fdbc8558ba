package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/admin"
	"github.com/mrlokans/booklook/internal/exporters"
	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/log"
)

const (
	csvFileField   = "file"
	maxCSVFileSize = 32 << 20
)

type csvExport func(ctx context.Context, w io.Writer) (exporters.ExportResult, error)

type csvImport func(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error)

// AnalyticsUsers GET /admin/analytics/users
func (ac *AdminController) AnalyticsUsers(c *gin.Context) {
	out, err := ac.service.AnalyticsUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyticsBooks GET /admin/analytics/books
func (ac *AdminController) AnalyticsBooks(c *gin.Context) {
	out, err := ac.service.AnalyticsBooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyticsReviews GET /admin/analytics/reviews
func (ac *AdminController) AnalyticsReviews(c *gin.Context) {
	out, err := ac.service.AnalyticsReviews(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// BulkUpdateBooks sets the same authors and/or genres on many books.
// POST /admin/books/bulk-update
func (ac *AdminController) BulkUpdateBooks(c *gin.Context) {
	var req admin.BookBulkUpdate
	if !bindJSON(c, &req) {
		return
	}
	result, err := ac.service.BulkUpdateBooks(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportUsers GET /admin/users/export
func (ac *AdminController) ExportUsers(c *gin.Context) {
	ac.exportCSV(c, "users", ac.service.ExportUsersCSV)
}

// ExportBooks GET /admin/books/export
func (ac *AdminController) ExportBooks(c *gin.Context) {
	ac.exportCSV(c, "books", ac.service.ExportBooksCSV)
}

// ExportReviews GET /admin/reviews/export
func (ac *AdminController) ExportReviews(c *gin.Context) {
	ac.exportCSV(c, "reviews", ac.service.ExportReviewsCSV)
}

// exportCSV streams the export as an attachment. Once rows are on the wire a
// failure can only be logged.
func (ac *AdminController) exportCSV(c *gin.Context, name string, export csvExport) {
	filename := name + "_export_" + time.Now().UTC().Format("20060102_150405") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	result, err := export(c.Request.Context(), c.Writer)
	if err != nil {
		log.Error("CSV export failed", zap.String("export", name), zap.Error(err))
		_ = c.Error(err)
		c.Abort()
		return
	}
	log.Info("CSV export finished", zap.String("export", name), zap.Int("rows", result.Rows), zap.Uint("actor_id", currentUser(c)))
}

// ImportUsersCSV POST /admin/users/import-csv
func (ac *AdminController) ImportUsersCSV(c *gin.Context) {
	ac.importCSV(c, ac.service.ImportUsersCSV)
}

// ImportBooksCSV POST /admin/books/import-csv
func (ac *AdminController) ImportBooksCSV(c *gin.Context) {
	ac.importCSV(c, ac.service.ImportBooksCSV)
}

// ImportReviewsCSV POST /admin/reviews/import-csv
func (ac *AdminController) ImportReviewsCSV(c *gin.Context) {
	ac.importCSV(c, ac.service.ImportReviewsCSV)
}

// importCSV reads the multipart upload under "file" and reports per-row outcomes.
func (ac *AdminController) importCSV(c *gin.Context, run csvImport) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCSVFileSize)
	file, _, err := c.Request.FormFile(csvFileField)
	if err != nil {
		respondBadRequest(c, "FILE_REQUIRED", "a CSV file is required in the \"file\" field")
		return
	}
	defer file.Close()

	result, err := run(c.Request.Context(), currentUser(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
