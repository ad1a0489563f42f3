package redisconn

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redisconn: empty connection URL")
	ErrFailedToParseURL   = errors.New("redisconn: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redisconn: failed to establish connection")
	ErrHealthcheckFailed  = errors.New("redisconn: healthcheck failed")
)
