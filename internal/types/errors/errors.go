package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var (
	ErrDBInternal    = errors.New("database internal error")
	ErrCacheInternal = errors.New("cache internal error")

	// ErrAdNotFoundOrForbidden намеренно не различает "нет такого объявления"
	// и "объявление принадлежит другому продавцу"
	ErrAdNotFoundOrForbidden = errors.New("ad not found or you are not the owner")

	ErrValidation         = errors.New("required fields are missing")
	ErrInvalidJSONPayload = errors.New("invalid JSON payload")
	ErrEmptyBody          = errors.New("request body is empty")
	ErrInvalidAction      = errors.New("invalid action parameter")
	ErrMissingUserID      = errors.New("userId query parameter is missing")
	ErrMissingQuery       = errors.New("q query parameter is missing")
	ErrInvalidRating      = errors.New("rating must be an integer")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrInternal           = errors.New("internal server error")

	ErrIndexing = errors.New("indexing error")
	ErrSearch   = errors.New("search error")
)

// ValidationError - ошибка валидации с перечнем отсутствующих полей
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(missing []string) *ValidationError {
	return &ValidationError{Missing: missing}
}

// ErrorServer - конверт неуспешного ответа
type ErrorServer struct {
	Success bool     `json:"success"`
	Message string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Details string   `json:"details,omitempty"`
}

func (e *ErrorServer) Error() string {
	return e.Message
}

/*
NewErrorServer
Собирает конверт ошибки. Для ValidationError в конверт попадает
список отсутствующих полей, для остального - только текст.
*/
func NewErrorServer(err error) ErrorServer {
	if err == nil {
		return ErrorServer{
			Message: ErrInternal.Error(),
		}
	}

	es := ErrorServer{
		Message: err.Error(),
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		es.Missing = ve.Missing
	}

	return es
}

func SendErrorTo(w http.ResponseWriter, err error, statusCode int, logger *zap.SugaredLogger) {
	send(w, NewErrorServer(err), statusCode, logger)
}

// SendInternalTo отдает 500 с общим сообщением и деталями исходной ошибки
func SendInternalTo(w http.ResponseWriter, details error, logger *zap.SugaredLogger) {
	es := NewErrorServer(ErrInternal)
	if details != nil {
		es.Details = details.Error()
	}

	send(w, es, http.StatusInternalServerError, logger)
}

func send(w http.ResponseWriter, es ErrorServer, statusCode int, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if errEncode := json.NewEncoder(w).Encode(es); errEncode != nil {
		logger.Error(errEncode)
	}
}
