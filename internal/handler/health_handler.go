package handler

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler handles the liveness and readiness probes.
type HealthHandler struct {
	db        *sqlx.DB
	tesseract string
	pdftoppm  string
}

// NewHealthHandler creates a HealthHandler. tesseract and pdftoppm name
// the OCR binaries the readiness probe verifies.
func NewHealthHandler(db *sqlx.DB, tesseract, pdftoppm string) *HealthHandler {
	return &HealthHandler{db: db, tesseract: tesseract, pdftoppm: pdftoppm}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. Ready means the database answers and
// the OCR toolchain is installed; document processing needs both.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
		return
	}
	for _, bin := range []string{h.tesseract, h.pdftoppm} {
		if _, err := exec.LookPath(bin); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "ocr binary not found: " + bin})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
