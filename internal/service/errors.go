package service

import "errors"

var (
	ErrNotFound          = errors.New("error not found")
	ErrAlreadyExists     = errors.New("error already exists")
	ErrInvalidAmount     = errors.New("error amount must be positive")
	ErrInvalidOrder      = errors.New("error invalid order request")
	ErrInvalidStock      = errors.New("error invalid stock")
	ErrInsufficientFunds = errors.New("error insufficient funds")
)
