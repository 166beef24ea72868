package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edulane/school-chat/internal/chat"
	"github.com/edulane/school-chat/internal/directory"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

func NewMethodNotAllowedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    lower(http.StatusText(http.StatusMethodNotAllowed)),
	}
}

func NewGoneError(msg string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusGone,
		Message:    msg,
	}
}

func NewValidationError(msg string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    msg,
	}
}

// apiErrorFor translates domain rejections into HTTP errors.
func apiErrorFor(err error) *ApiError {
	switch {
	case errors.Is(err, directory.ErrRoomNotFound),
		errors.Is(err, chat.ErrMessageNotFound):
		return NewNotFoundError()
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, directory.ErrNotCreator):
		return NewForbiddenError()
	case errors.Is(err, chat.ErrRoomArchived),
		errors.Is(err, directory.ErrRoomArchived):
		return NewGoneError("room is archived")
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrInvalidKind),
		errors.Is(err, chat.ErrInvalidReplyTo),
		errors.Is(err, chat.ErrMessageNotInRoom),
		errors.Is(err, directory.ErrInvalidKind),
		errors.Is(err, directory.ErrEmptyRoomName),
		errors.Is(err, directory.ErrSelfPrivate):
		return NewValidationError(err.Error())
	default:
		return NewInternalServerError(err)
	}
}
