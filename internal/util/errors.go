package util

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrValidation          = errors.New("validation error")
	ErrSessionClosed       = errors.New("review session already closed")
	ErrEmptyAnswer         = errors.New("answer is empty")
	ErrUpstreamUnavailable = errors.New("upstream dependency unavailable")
	ErrMistakeNotFound     = errors.New("错题不存在")
	ErrSessionNotFound     = errors.New("复习会话不存在")
)
