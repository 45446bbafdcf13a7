package service

import "errors"

var (
	ErrPaymentInitiation    = errors.New("payment initiation failed")
	ErrPaymentVerification  = errors.New("payment verification failed")
	ErrUnknownPaymentStatus = errors.New("unknown payment status")
	ErrOrderNotFound        = errors.New("order not found")

	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid access token")

	ErrNotProductOwner  = errors.New("not owner of this product")
	ErrCartItemExists   = errors.New("item is already in cart")
	ErrOutOfStock       = errors.New("ordered quantity exceeds stock")
	ErrQuantityBelowOne = errors.New("ordered quantity below one")
	ErrInvalidAction    = errors.New("invalid cart action")
)
