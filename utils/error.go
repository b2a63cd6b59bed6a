package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")
var ErrorInsufficientStock = errors.New("insufficient stock")
var ErrorChallanAlreadyConverted = errors.New("challan already converted")
var ErrorValidation = errors.New("validation failed")
var ErrorBookingFromChallan = errors.New("booking originated from a challan and cannot be modified")
