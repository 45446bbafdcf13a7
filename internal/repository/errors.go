package repository

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartItemExists   = errors.New("cart item already exists")
	ErrCategoryNotFound = errors.New("category not found")
)
