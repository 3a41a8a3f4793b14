package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// IdempotencyHeader — заголовок, которым клиент помечает повторяемый запрос.
const IdempotencyHeader = "Idempotency-Key"

const defaultIdempotencyTTL = 24 * time.Hour

// bodyCapturingWriter дублирует тело ответа в буфер, чтобы сохранить его
// в записи идемпотентности и воспроизвести при повторе.
type bodyCapturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapturingWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *bodyCapturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency защищает мутирующие запросы от повторного применения.
// Первый запрос с ключом регистрируется как processing, его результат
// сохраняется; повтор с тем же ключом и тем же телом получает сохранённый
// ответ, повтор с другим телом — 409.
func Idempotency(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "cannot read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		record, err := repo.CreateProcessing(key, hash, time.Now().UTC().Add(defaultIdempotencyTTL))
		switch {
		case err == nil:
			// Первый запрос с этим ключом — пропускаем дальше и фиксируем результат.
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":    "idempotency_key_reused",
				"message": "idempotency key was used with a different request",
			})
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			replay(c, record)
			return
		default:
			logger.WithError(err).WithField("key", key).Error("idempotency registration failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "internal server error"})
			return
		}

		writer := &bodyCapturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		responseBody := writer.body.Bytes()

		var markErr error
		if status >= 200 && status < 400 {
			markErr = repo.MarkDone(key, responseBody, status)
		} else {
			markErr = repo.MarkFailed(key, responseBody, status)
		}
		if markErr != nil {
			logger.WithError(markErr).WithField("key", key).Warn("failed to finalize idempotency record")
		}
	}
}

// replay отдаёт сохранённый ответ либо 409, если первый запрос ещё в работе.
func replay(c *gin.Context, record domain.IdempotencyRecord) {
	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":    "request_in_flight",
			"message": "original request is still being processed",
		})
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		status := record.HTTPStatus
		if status == 0 {
			status = http.StatusOK
		}
		c.Header("X-Idempotency-Replay", "true")
		c.Data(status, "application/json", record.ResponseBody)
		c.Abort()
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "internal server error"})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
