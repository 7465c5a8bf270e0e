// Package apperr holds the domain error catalog. Every error carries a stable
// 4-digit code that clients switch on, and the HTTP status it maps to.
package apperr

import "net/http"

type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Code + " " + e.Message
}

// Is matches any error carrying the same code, so copies made by
// WithMessage still compare equal to the catalog entry.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: message}
}

func newError(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// auth/signup
var (
	EmailAlreadyExist        = newError("0001", http.StatusConflict, "email already exists")
	NicknameAlreadyExist     = newError("0002", http.StatusConflict, "nickname already exists")
	MoonjinEmailAlreadyExist = newError("0003", http.StatusConflict, "moonjin id already exists")
	SignupError              = newError("0004", http.StatusInternalServerError, "signup failed")
	WriterSignupError        = newError("0005", http.StatusInternalServerError, "writer signup failed")
	SignupRoleError          = newError("0006", http.StatusBadRequest, "invalid role for signup")
)

// mail
var EmailNotExist = newError("0010", http.StatusBadGateway, "email could not be delivered")

// tokens
var (
	TokenNotFound = newError("0020", http.StatusUnauthorized, "token not found")
	InvalidToken  = newError("0021", http.StatusUnauthorized, "invalid token")
)

// login
var (
	UserNotFound         = newError("0030", http.StatusNotFound, "user not found")
	InvalidPassword      = newError("0031", http.StatusUnauthorized, "invalid password")
	LoginError           = newError("0032", http.StatusInternalServerError, "login failed")
	UserNotFoundInSocial = newError("0035", http.StatusNotFound, "no user linked to this social account")
	SocialUserError      = newError("0038", http.StatusBadRequest, "social account cannot log in with a password")
	SocialSignupError    = newError("0040", http.StatusInternalServerError, "social signup failed")
)

// account
var (
	PasswordChangeError = newError("0050", http.StatusInternalServerError, "password change failed")
	UserNotWriter       = newError("0051", http.StatusForbidden, "user is not a writer")
)

// post
var (
	CreatePostError     = newError("0100", http.StatusInternalServerError, "post could not be saved")
	PostNotFound        = newError("0101", http.StatusNotFound, "post not found")
	ForbiddenForPost    = newError("0102", http.StatusForbidden, "post belongs to another writer")
	PostContentNotFound = newError("0103", http.StatusNotFound, "post content not found")
	InvalidCategory     = newError("0104", http.StatusBadRequest, "unknown category")
)

// series
var (
	CreateSeriesError  = newError("0201", http.StatusInternalServerError, "series could not be saved")
	SeriesNotFound     = newError("0202", http.StatusNotFound, "series not found")
	ForbiddenForSeries = newError("0203", http.StatusForbidden, "series belongs to another writer")
)

// newsletter
var (
	SendNewsletterError        = newError("0300", http.StatusBadGateway, "newsletter could not be sent")
	NewsletterNotFound         = newError("0301", http.StatusNotFound, "newsletter not found")
	NewsletterCategoryNotFound = newError("0302", http.StatusBadRequest, "post category cannot be sent as a newsletter")
)

// follow/subscribe
var (
	FollowMyselfError     = newError("0400", http.StatusBadRequest, "cannot follow yourself")
	FollowAlreadyError    = newError("0401", http.StatusConflict, "already following")
	FollowerNotFound      = newError("0402", http.StatusNotFound, "follow relation not found")
	SubscribeAlreadyError = newError("0404", http.StatusConflict, "email already subscribed")
)

// request/infra
var (
	InvalidRequest      = newError("9001", http.StatusBadRequest, "invalid request")
	TooManyRequests     = newError("9002", http.StatusTooManyRequests, "too many requests")
	InternalServerError = newError("9999", http.StatusInternalServerError, "internal server error")
)
